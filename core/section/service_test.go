package section_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/section"
	inmemdb "github.com/trezcool/vitrine/storage/database/inmem"
)

func newService() *section.Service {
	return section.NewService(inmemdb.Open().Sections(), core.NewValidator())
}

func TestService_Get(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, key := range section.Keys {
		t.Run(string(key), func(t *testing.T) {
			s, err := svc.Get(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, key, s.Key())
		})
	}

	_, err := svc.Get(ctx, "sidebar")
	assert.ErrorIs(t, err, section.ErrUnknownSection)

	s, err := svc.Get(ctx, section.KeyPhilosophy)
	require.NoError(t, err)
	philo := s.(*section.Philosophy)
	assert.Equal(t, "Our Philosophy", philo.Title)
	assert.NotNil(t, philo.CoreValues, "list columns default to empty lists")
}

func TestService_Save(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	section.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { section.NowFunc = time.Now })

	tests := []struct {
		name      string
		sect      section.Section
		wantField string
	}{
		{name: "bad link", sect: &section.Hero{CTALink: "javascript:alert(1)"}, wantField: "cta_link"},
		{name: "protocol relative", sect: &section.Hero{ImageURL: "//evil.test/x.png"}, wantField: "image_url"},
		{name: "blank list item", sect: &section.Philosophy{CoreValues: []string{"Integrity", "  "}}, wantField: "core_values[1]"},
		{name: "nested required", sect: &section.AboutGroup{StaffMembers: []section.StaffMember{{Designation: "Dean"}}}, wantField: "staff_members[0].name"},
		{name: "contact email", sect: &section.Contact{Email: "not-an-email"}, wantField: "email"},
		{name: "smtp port", sect: &section.SMTPSettings{Port: 70000}, wantField: "port"},
		{name: "multibyte text", sect: &section.Philosophy{Description: strings.Repeat("é", 40000)}, wantField: "description"},
		{name: "multibyte message", sect: &section.DirectorsDesk{Message: strings.Repeat("日", 30000)}, wantField: "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Save(ctx, tt.sect)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldMap(), tt.wantField)
		})
	}

	err := svc.Save(ctx, &section.Philosophy{Vision: strings.Repeat("é", 40000)})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "vision must be a maximum of 65535 bytes in length", vErr.FieldMap()["vision"])

	// byte limits count bytes, so a full column of ASCII is accepted
	require.NoError(t, svc.Save(ctx, &section.Philosophy{Vision: strings.Repeat("x", 65535)}))

	hero := &section.Hero{Title: "  Admissions open ", CTALink: "/admissions", ImageURL: "https://cdn.test/hero.jpg"}
	require.NoError(t, svc.Save(ctx, hero))

	s, err := svc.Get(ctx, section.KeyHero)
	require.NoError(t, err)
	got := s.(*section.Hero)
	assert.Equal(t, "Admissions open", got.Title)
	assert.Equal(t, "/admissions", got.CTALink)
	assert.Equal(t, now, got.UpdatedAt)

	about := &section.AboutGroup{
		Title:        "About",
		StaffMembers: []section.StaffMember{{Name: " Dr. Rao ", Designation: "Principal"}},
	}
	require.NoError(t, svc.Save(ctx, about))
	s, err = svc.Get(ctx, section.KeyAboutGroup)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Rao", s.(*section.AboutGroup).StaffMembers[0].Name)
}

func TestService_SMTP(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	smtp, err := svc.SMTP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 587, smtp.Port)
	assert.False(t, smtp.Configured())

	require.NoError(t, svc.Save(ctx, &section.SMTPSettings{
		Host:      "SMTP.test.cd",
		Port:      465,
		Username:  "mailer",
		Password:  "s3cret",
		FromEmail: "noreply@test.cd",
	}))

	// a blank password keeps the stored one
	require.NoError(t, svc.Save(ctx, &section.SMTPSettings{Host: "smtp.test.cd", Port: 465, Username: "mailer", FromEmail: "noreply@test.cd"}))
	smtp, err = svc.SMTP(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", smtp.Password)
	assert.Equal(t, "smtp.test.cd", smtp.Host)
	assert.True(t, smtp.Configured())

	smtp.Redact()
	assert.Empty(t, smtp.Password)
	assert.True(t, smtp.HasPassword)

	assert.False(t, section.IsPublic(section.KeySMTP))
	assert.True(t, section.IsPublic(section.KeyContact))
}

func TestService_NotifyAddress(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	addr, err := svc.NotifyAddress(ctx)
	require.NoError(t, err)
	assert.Empty(t, addr)

	require.NoError(t, svc.Save(ctx, &section.Contact{Email: "Info@Test.cd"}))
	addr, err = svc.NotifyAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "info@test.cd", addr)

	require.NoError(t, svc.Save(ctx, &section.SMTPSettings{NotifyEmail: "office@test.cd"}))
	addr, err = svc.NotifyAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "office@test.cd", addr)
}
