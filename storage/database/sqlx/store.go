// Package sqlxrepos implements the repositories on MySQL with sqlx.
package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core/enquiry"
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/showcase"
	"github.com/trezcool/vitrine/core/user"
)

// Store hands out repositories sharing one connection pool.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Sections() section.Repository  { return sectionRepository{db: s.db} }
func (s *Store) Showcase() showcase.Repository { return showcaseRepository{db: s.db} }
func (s *Store) Users() user.Repository        { return userRepository{db: s.db} }
func (s *Store) Enquiries() enquiry.Repository { return enquiryRepository{db: s.db} }

// WithinTx runs fn with content repositories bound to one transaction.
// The transaction is committed only if fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(sections section.Repository, items showcase.Repository) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(sectionRepository{db: tx}, showcaseRepository{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// contains returns a LIKE pattern matching s anywhere.
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func placeholders(cols []string, prefix string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}

func assignments(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c + " = :" + c
	}
	return strings.Join(out, ", ")
}
