// Package testutil holds fixtures shared by the test suites.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/showcase"
	"github.com/trezcool/vitrine/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  null.NewString(uname, uname != ""),
		Email:     null.NewString(email, email != ""),
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateRecord stores rec through the showcase service and fails the test on error.
func CreateRecord(t *testing.T, svc *showcase.Service, rec showcase.Record) showcase.Record {
	t.Helper()

	if err := svc.Create(context.Background(), rec); err != nil {
		t.Fatalf("CreateRecord(%s): %v", rec.Kind(), err)
	}
	return rec
}

// EmailTemplates parses the embedded templates for conf.
func EmailTemplates(t *testing.T, conf *core.Config) *core.EmailTemplates {
	t.Helper()

	tmpls, err := core.ParseEmailTemplates(conf)
	if err != nil {
		t.Fatalf("EmailTemplates(): %v", err)
	}
	return tmpls
}
