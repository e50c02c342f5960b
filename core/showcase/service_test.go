package showcase_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/showcase"
	inmemdb "github.com/trezcool/vitrine/storage/database/inmem"
)

func newService() *showcase.Service {
	return showcase.NewService(inmemdb.Open().Showcase(), core.NewValidator())
}

func titles(recs []showcase.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		switch v := r.(type) {
		case *showcase.Testimonial:
			out = append(out, v.Name)
		case *showcase.ShortNews:
			out = append(out, v.Text)
		case *showcase.Course:
			out = append(out, v.Title)
		}
	}
	return out
}

func TestLookup(t *testing.T) {
	for _, kind := range showcase.Kinds {
		coll, ok := showcase.Lookup(kind)
		require.True(t, ok, kind)
		assert.Equal(t, kind, coll.New().Kind())
		assert.True(t, coll.New().Base().IsActive)
	}
	_, ok := showcase.Lookup("COURSES")
	assert.True(t, ok)
	_, ok = showcase.Lookup("events")
	assert.False(t, ok)
	assert.Panics(t, func() { showcase.MustLookup("events") })
}

func TestService_List(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for i, tm := range []*showcase.Testimonial{
		{Name: "Asha", Message: "Great campus", Rating: 4},
		{Name: "Ravi", Message: "Loved the labs", Rating: 5},
		{Name: "Meena", Message: "Helpful faculty", Rating: 3},
	} {
		tm.IsActive = i != 2
		tm.SortOrder = 10 - i
		require.NoError(t, svc.Create(ctx, tm))
	}

	tests := []struct {
		name   string
		filter showcase.Filter
		want   []string
	}{
		{name: "default ordering", want: []string{"Meena", "Ravi", "Asha"}},
		{name: "active only", filter: showcase.Filter{ActiveOnly: true}, want: []string{"Ravi", "Asha"}},
		{name: "search", filter: showcase.Filter{Search: " LABS "}, want: []string{"Ravi"}},
		{name: "ordering", filter: showcase.Filter{Ordering: []core.DBOrdering{{Field: "rating"}}}, want: []string{"Ravi", "Asha", "Meena"}},
		{name: "unknown ordering", filter: showcase.Filter{Ordering: []core.DBOrdering{{Field: "password"}}}, want: []string{"Meena", "Ravi", "Asha"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := svc.List(ctx, showcase.KindTestimonials, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(recs))
		})
	}

	recs, err := svc.List(ctx, showcase.KindCourses, showcase.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = svc.List(ctx, "events", showcase.Filter{})
	assert.ErrorIs(t, err, showcase.ErrUnknownKind)
}

func TestService_shortNewsExpiry(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, n := range []*showcase.ShortNews{
		{Text: "Admissions open"},
		{Text: "Exam results", ExpiresAt: null.TimeFrom(now.Add(time.Hour))},
		{Text: "Old notice", ExpiresAt: null.TimeFrom(now.Add(-time.Hour))},
	} {
		n.IsActive = true
		require.NoError(t, svc.Create(ctx, n))
	}

	recs, err := svc.List(ctx, showcase.KindShortNews, showcase.Filter{ActiveOnly: true, Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"Admissions open", "Exam results"}, titles(recs))

	recs, err = svc.List(ctx, showcase.KindShortNews, showcase.Filter{ActiveOnly: true, Now: now.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Admissions open"}, titles(recs))

	recs, err = svc.List(ctx, showcase.KindShortNews, showcase.Filter{Now: now.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recs, 3, "admins see expired news")
}

func TestService_CreateUpdate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	showcase.NowFunc = func() time.Time { return created }
	t.Cleanup(func() { showcase.NowFunc = time.Now })

	t.Run("validation", func(t *testing.T) {
		err := svc.Create(ctx, &showcase.Testimonial{Rating: 9, ImageURL: "ftp://files.test/a.png"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"image_url", "message", "name", "rating"}, sortedKeys(vErr.FieldMap()))
	})

	course := &showcase.Course{Title: " B.Sc. Nursing "}
	require.NoError(t, svc.Create(ctx, course))
	assert.NotZero(t, course.ID)
	assert.Equal(t, "b-sc-nursing", course.Slug)
	assert.Equal(t, created, course.CreatedAt)

	t.Run("slug exists", func(t *testing.T) {
		err := svc.Create(ctx, &showcase.Course{Title: "Nursing", Slug: "B Sc Nursing"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, map[string]string{"slug": showcase.ErrSlugExists.Error()}, vErr.FieldMap())
	})

	exists, err := svc.Exists(ctx, &showcase.Course{Slug: "b-sc-nursing"})
	require.NoError(t, err)
	assert.True(t, exists)

	updated := created.Add(48 * time.Hour)
	showcase.NowFunc = func() time.Time { return updated }

	// keeping its own slug is not a conflict
	upd := &showcase.Course{Title: "B.Sc. Nursing", Slug: "b-sc-nursing", Duration: "4 years"}
	require.NoError(t, svc.Update(ctx, course.ID, upd))

	rec, err := svc.Get(ctx, showcase.KindCourses, course.ID)
	require.NoError(t, err)
	got := rec.(*showcase.Course)
	assert.Equal(t, "4 years", got.Duration)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, updated, got.UpdatedAt)

	err = svc.Update(ctx, 999, &showcase.Course{Title: "Ghost"})
	assert.True(t, core.IsNotFound(err))
}

func TestService_Delete(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	var ids []int
	for _, text := range []string{"one", "two", "three"} {
		n := &showcase.ShortNews{Text: text}
		require.NoError(t, svc.Create(ctx, n))
		ids = append(ids, n.ID)
	}

	var vErr *core.ValidationError
	assert.ErrorAs(t, svc.Delete(ctx, showcase.KindShortNews), &vErr)
	assert.True(t, core.IsNotFound(svc.Delete(ctx, showcase.KindShortNews, 999)))

	require.NoError(t, svc.Delete(ctx, showcase.KindShortNews, ids[0], ids[2]))
	recs, err := svc.List(ctx, showcase.KindShortNews, showcase.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, titles(recs))

	_, err = svc.Get(ctx, showcase.KindShortNews, ids[0])
	assert.True(t, core.IsNotFound(err))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// racingRepo lets uniqueness checks pass and fails the write like a unique index would.
type racingRepo struct {
	showcase.Repository
}

func (racingRepo) RecordExists(context.Context, *showcase.Collection, map[string]interface{}, int) (bool, error) {
	return false, nil
}

func (racingRepo) CreateRecord(context.Context, *showcase.Collection, showcase.Record) error {
	return errors.Wrap(showcase.ErrSlugExists, "inserting into courses")
}

func TestService_Create_slugRace(t *testing.T) {
	svc := showcase.NewService(racingRepo{inmemdb.Open().Showcase()}, core.NewValidator())

	err := svc.Create(context.Background(), &showcase.Course{Title: "B.Sc. Nursing"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ErrorIs(t, err, showcase.ErrSlugExists)
	assert.Equal(t, map[string]string{"slug": showcase.ErrSlugExists.Error()}, vErr.FieldMap())
}
