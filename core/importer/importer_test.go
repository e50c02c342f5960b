package importer_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/importer"
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/showcase"
	inmemdb "github.com/trezcool/vitrine/storage/database/inmem"
)

type testEnv struct {
	db       *inmemdb.DB
	im       *importer.Importer
	sections *section.Service
	items    *showcase.Service
}

func setup() *testEnv {
	db := inmemdb.Open()
	validate := core.NewValidator()
	return &testEnv{
		db:       db,
		im:       importer.New(db, validate, nil),
		sections: section.NewService(db.Sections(), validate),
		items:    showcase.NewService(db.Showcase(), validate),
	}
}

func (env *testEnv) list(t *testing.T, kind showcase.Kind) []showcase.Record {
	t.Helper()

	recs, err := env.items.List(context.Background(), kind, showcase.Filter{})
	require.NoError(t, err)
	return recs
}

const dump = `{
	"heroData": "{\"heading\":\"Welcome to the campus\",\"tagline\":\"Learn. Grow.\",\"buttonText\":\"Apply\",\"buttonLink\":\"/admissions\"}",
	"aboutGroup": {"data": {"title": "About the group", "staff": [{"fullName": "Dr. Rao", "position": "Principal"}, "not an object"]}},
	"philosophy": {"vision": "Excellence", "coreValues": "Integrity\nCompassion\n\n", "aims": [{"text": "Access"}, "Quality"]},
	"contactInfo": {"emailAddress": "Info@Campus.test", "phoneNumber": "+91 1234", "socialLinks": [{"name": "Facebook", "link": "https://facebook.test/campus"}]},
	"testimonials": "[{\"studentName\":\"Asha\",\"text\":\"Loved it\",\"stars\":5},{\"name\":\"Ravi\",\"message\":\"Great faculty\",\"active\":false}]",
	"gallery": ["/uploads/a.jpg", {"src": "/uploads/b.jpg", "album": "Campus"}, 42],
	"shortNews": {"items": [{"title": "Admissions open", "expiresAt": 1717236000000}, "Exams in June"]},
	"courses": [{"name": "B.Sc. Nursing", "duration": "4 years"}, {"courseName": "B.Sc. Nursing"}],
	"theme": "dark",
	"lastVisit": 1717236000000
}`

func TestImporter_Import(t *testing.T) {
	env := setup()
	ctx := context.Background()

	report, err := env.im.Import(ctx, []byte(dump), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"lastVisit", "theme"}, report.Unmatched)
	assert.Equal(t, 4+2+2+2+1, report.Imported())
	assert.Equal(t, 1, report.Skipped(), "the duplicate course is skipped")

	s, err := env.sections.Get(ctx, section.KeyHero)
	require.NoError(t, err)
	hero := s.(*section.Hero)
	assert.Equal(t, "Welcome to the campus", hero.Title)
	assert.Equal(t, "Learn. Grow.", hero.Subtitle)
	assert.Equal(t, "/admissions", hero.CTALink)

	s, err = env.sections.Get(ctx, section.KeyAboutGroup)
	require.NoError(t, err)
	about := s.(*section.AboutGroup)
	assert.Equal(t, "About the group", about.Title)
	require.Len(t, about.StaffMembers, 1)
	assert.Equal(t, section.StaffMember{Name: "Dr. Rao", Designation: "Principal"}, about.StaffMembers[0])

	s, err = env.sections.Get(ctx, section.KeyPhilosophy)
	require.NoError(t, err)
	philo := s.(*section.Philosophy)
	assert.Equal(t, "Our Philosophy", philo.Title, "missing fields keep their stored value")
	assert.Equal(t, []string{"Integrity", "Compassion"}, []string(philo.CoreValues))
	assert.Equal(t, []string{"Access", "Quality"}, []string(philo.AimsObjectives))

	addr, err := env.sections.NotifyAddress(ctx)
	require.NoError(t, err)
	assert.Equal(t, "info@campus.test", addr)

	testimonials := env.list(t, showcase.KindTestimonials)
	require.Len(t, testimonials, 2)
	asha := testimonials[0].(*showcase.Testimonial)
	assert.Equal(t, "Asha", asha.Name)
	assert.Equal(t, 5, asha.Rating)
	assert.True(t, asha.IsActive)
	assert.False(t, testimonials[1].Base().IsActive)

	gallery := env.list(t, showcase.KindGallery)
	require.Len(t, gallery, 2)
	assert.Equal(t, "/uploads/a.jpg", gallery[0].(*showcase.GalleryImage).ImageURL)
	assert.Equal(t, "campus", gallery[1].(*showcase.GalleryImage).Category)

	news := env.list(t, showcase.KindShortNews)
	require.Len(t, news, 2)
	first := news[0].(*showcase.ShortNews)
	assert.Equal(t, "Admissions open", first.Text)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), first.ExpiresAt.Time)
	assert.Equal(t, "Exams in June", news[1].(*showcase.ShortNews).Text)

	courses := env.list(t, showcase.KindCourses)
	require.Len(t, courses, 1)
	assert.Equal(t, "b-sc-nursing", courses[0].(*showcase.Course).Slug)

	var out bytes.Buffer
	report.Render(&out)
	assert.Contains(t, out.String(), "ignored keys: lastVisit, theme")
	assert.Contains(t, out.String(), "item #3 has an unexpected shape, ignored")

	t.Run("idempotent", func(t *testing.T) {
		report, err := env.im.Import(ctx, []byte(dump), importer.Options{})
		require.NoError(t, err)
		assert.Equal(t, 4, report.Imported(), "only sections are written again")
		assert.Len(t, env.list(t, showcase.KindTestimonials), 2)
		assert.Len(t, env.list(t, showcase.KindCourses), 1)
	})
}

func TestImporter_invalidDump(t *testing.T) {
	env := setup()

	for _, d := range []string{"", "nope", "[1, 2]", `"text"`, `{"a":`} {
		_, err := env.im.Import(context.Background(), []byte(d), importer.Options{})
		assert.ErrorIs(t, err, importer.ErrInvalidDump, d)
	}
}

func TestImporter_dryRun(t *testing.T) {
	env := setup()
	ctx := context.Background()

	report, err := env.im.Import(ctx, []byte(dump), importer.Options{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Positive(t, report.Imported())

	assert.Empty(t, env.list(t, showcase.KindTestimonials))
	s, err := env.sections.Get(ctx, section.KeyHero)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", s.(*section.Hero).Title)

	var out bytes.Buffer
	report.Render(&out)
	assert.Contains(t, out.String(), "dry run: nothing was written")
}

func TestImporter_oversized(t *testing.T) {
	ctx := context.Background()
	long := strings.Repeat("x", 600)
	d := `{"testimonials": [{"name": "Asha", "message": "Hi"}], "shortNews": [{"text": "` + long + `"}]}`

	t.Run("rejected", func(t *testing.T) {
		env := setup()
		_, err := env.im.Import(ctx, []byte(d), importer.Options{})

		var recErr *importer.RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, "short-news", recErr.Target)
		assert.Equal(t, 0, recErr.Index)
		assert.Equal(t, `short-news item #1 (from "shortNews"): text: text must be a maximum of 500 characters in length`, err.Error())

		// nothing is kept from an aborted import
		assert.Empty(t, env.list(t, showcase.KindTestimonials))
	})

	t.Run("truncated", func(t *testing.T) {
		env := setup()
		report, err := env.im.Import(ctx, []byte(d), importer.Options{Truncate: true})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Imported())
		assert.Equal(t, 1, report.Warnings())

		news := env.list(t, showcase.KindShortNews)
		require.Len(t, news, 1)
		assert.Len(t, news[0].(*showcase.ShortNews).Text, 500)
	})

	t.Run("multibyte text rejected", func(t *testing.T) {
		env := setup()
		msg := strings.Repeat("é", 40000) // 80000 bytes
		_, err := env.im.Import(ctx, []byte(`{"testimonials": [{"name": "Asha", "message": "`+msg+`"}]}`), importer.Options{})

		var recErr *importer.RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Equal(t, `testimonials item #1 (from "testimonials"): message: message must be a maximum of 65535 bytes in length`, err.Error())
	})

	t.Run("multibyte text truncated", func(t *testing.T) {
		env := setup()
		msg := strings.Repeat("é", 40000)
		report, err := env.im.Import(ctx, []byte(`{"testimonials": [{"name": "Asha", "message": "`+msg+`"}]}`), importer.Options{Truncate: true})
		require.NoError(t, err)
		require.Len(t, report.Rows, 1)
		assert.Equal(t, []string{"item #1: message truncated from 80000 to 65535 bytes"}, report.Rows[0].Warnings)

		recs := env.list(t, showcase.KindTestimonials)
		require.Len(t, recs, 1)
		got := recs[0].(*showcase.Testimonial).Message
		assert.Len(t, got, 65534, "cut before the split rune")
		assert.True(t, utf8.ValidString(got))
	})

	t.Run("invalid record", func(t *testing.T) {
		env := setup()
		_, err := env.im.Import(ctx, []byte(`{"testimonials": [{"name": "Asha"}]}`), importer.Options{})

		var recErr *importer.RecordError
		require.ErrorAs(t, err, &recErr)
		assert.Contains(t, err.Error(), "message: this field is required")
	})
}

func TestImporter_lossyValues(t *testing.T) {
	env := setup()
	ctx := context.Background()

	d := `{
		"testimonials": [{"name": "Asha", "message": "Hi", "rating": 4.5}, {"name": "Ravi", "message": "Yo", "stars": "five"}],
		"shortNews": [{"text": "Exams", "expiresAt": "next week"}]
	}`
	report, err := env.im.Import(ctx, []byte(d), importer.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported())

	var warnings []string
	for _, row := range report.Rows {
		warnings = append(warnings, row.Warnings...)
	}
	assert.ElementsMatch(t, []string{
		"item #1: rating: 4.5 is not a whole number, imported as 4",
		`item #2: rating: "five" is not a number, ignored`,
		`item #1: expires_at: unrecognised date "next week", left empty`,
	}, warnings)

	recs := env.list(t, showcase.KindTestimonials)
	require.Len(t, recs, 2)
	assert.Equal(t, 4, recs[0].(*showcase.Testimonial).Rating)
	assert.Equal(t, 0, recs[1].(*showcase.Testimonial).Rating)

	news := env.list(t, showcase.KindShortNews)
	require.Len(t, news, 1)
	assert.False(t, news[0].(*showcase.ShortNews).ExpiresAt.Valid)
}
