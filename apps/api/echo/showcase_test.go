package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/vitrine/core/showcase"
	"github.com/trezcool/vitrine/core/user"
	testutil "github.com/trezcool/vitrine/tests"
)

func Test_showcaseApi_query(t *testing.T) {
	env := setup(t)

	editor := env.createUser(t, "Editor", "editor", []string{user.RoleAdminEditor}, true)
	token := env.token(t, editor)

	alice := testutil.CreateRecord(t, env.showcase, &showcase.Testimonial{Meta: showcase.Meta{SortOrder: 2, IsActive: true}, Name: "Alice", Message: "Great campus"})
	bob := testutil.CreateRecord(t, env.showcase, &showcase.Testimonial{Meta: showcase.Meta{SortOrder: 1, IsActive: true}, Name: "Bob", Message: "Great teachers", Rating: 5})
	hidden := testutil.CreateRecord(t, env.showcase, &showcase.Testimonial{Meta: showcase.Meta{IsActive: false}, Name: "Carol", Message: "Hidden"})

	runHTTPTests(t, env, []httpTest{
		{name: "public", path: "/api/testimonials", wantData: marshalList(t, bob, alice)},
		{name: "public: all is ignored", path: "/api/testimonials?all=true", wantData: marshalList(t, bob, alice)},
		{name: "admin: all", path: "/api/testimonials?all=true", token: token, wantData: marshalList(t, hidden, bob, alice)},
		{name: "admin: active only", path: "/api/testimonials", token: token, wantData: marshalList(t, bob, alice)},
		{name: "search", path: "/api/testimonials?search=TEACH", wantData: marshalList(t, bob)},
		{name: "ordering", path: "/api/testimonials?ordering=-rating,name", wantData: marshalList(t, bob, alice)},
		{name: "unknown ordering", path: "/api/testimonials?ordering=password", wantData: marshalList(t, bob, alice)},
		{name: "unknown collection", path: "/api/nope", wantCode: http.StatusNotFound},
	})
}

func Test_showcaseApi_retrieve(t *testing.T) {
	env := setup(t)

	editor := env.createUser(t, "Editor", "editor", []string{user.RoleAdminEditor}, true)
	token := env.token(t, editor)

	slider := testutil.CreateRecord(t, env.showcase, &showcase.Slider{Meta: showcase.Meta{IsActive: true}, ImageURL: "/media/a.png"})
	hidden := testutil.CreateRecord(t, env.showcase, &showcase.Slider{Meta: showcase.Meta{IsActive: false}, ImageURL: "/media/b.png"})
	path := func(rec showcase.Record) string { return fmt.Sprintf("/api/sliders/%d", rec.Base().ID) }

	runHTTPTests(t, env, []httpTest{
		{name: "active", path: path(slider), wantData: marshalObj(t, slider)},
		{name: "inactive", path: path(hidden), wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "not found"})},
		{name: "inactive: admin", path: path(hidden), token: token, wantData: marshalObj(t, hidden)},
		{name: "unknown", path: "/api/sliders/999", wantCode: http.StatusNotFound},
		{name: "invalid id", path: "/api/sliders/abc", wantCode: http.StatusNotFound},
	})
}

func Test_showcaseApi_shortNewsExpiry(t *testing.T) {
	env := setup(t)

	now := time.Now().UTC()
	live := testutil.CreateRecord(t, env.showcase, &showcase.ShortNews{
		Meta: showcase.Meta{IsActive: true}, Text: "Admissions open", ExpiresAt: null.TimeFrom(now.Add(24 * time.Hour)),
	})
	forever := testutil.CreateRecord(t, env.showcase, &showcase.ShortNews{Meta: showcase.Meta{IsActive: true}, Text: "Welcome"})
	expired := testutil.CreateRecord(t, env.showcase, &showcase.ShortNews{
		Meta: showcase.Meta{IsActive: true}, Text: "Exams", ExpiresAt: null.TimeFrom(now.Add(-time.Hour)),
	})

	runHTTPTests(t, env, []httpTest{
		{name: "list", path: "/api/short-news", wantData: marshalList(t, live, forever)},
		{name: "expired", path: fmt.Sprintf("/api/short-news/%d", expired.Base().ID), wantCode: http.StatusNotFound},
	})
}

func Test_showcaseApi_create(t *testing.T) {
	env := setup(t)

	editor := env.createUser(t, "Editor", "editor", []string{user.RoleAdminEditor}, true)
	token := env.token(t, editor)

	runHTTPTests(t, env, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/courses",
			body: []byte(`{"title":"Nursing"}`), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "required", method: http.MethodPost, path: "/api/courses", token: token,
			body: []byte(`{"summary":"x"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title":"this field is required","slug":"this field is required"}`),
		},
		{
			name: "created", method: http.MethodPost, path: "/api/courses", token: token,
			body: []byte(`{"title":"B.Sc. Nursing","duration":"4 years"}`), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate slug", method: http.MethodPost, path: "/api/courses", token: token,
			body: []byte(`{"title":"Other","slug":"B.Sc Nursing"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"slug": showcase.ErrSlugExists.Error()}),
		},
	})

	recs, err := env.showcase.List(context.Background(), showcase.KindCourses, showcase.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	course := recs[0].(*showcase.Course)
	assert.Equal(t, "b-sc-nursing", course.Slug)
	assert.True(t, course.IsActive)
	assert.False(t, course.CreatedAt.IsZero())
}

func Test_showcaseApi_update(t *testing.T) {
	env := setup(t)

	editor := env.createUser(t, "Editor", "editor", []string{user.RoleAdminEditor}, true)
	token := env.token(t, editor)

	img := testutil.CreateRecord(t, env.showcase, &showcase.GalleryImage{Meta: showcase.Meta{IsActive: true}, ImageURL: "/media/a.png"})
	path := fmt.Sprintf("/api/gallery/%d", img.Base().ID)

	runHTTPTests(t, env, []httpTest{
		{
			name: "invalid", method: http.MethodPut, path: path, token: token,
			body: []byte(`{"image_url":"ftp://example.com/a.png"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown", method: http.MethodPut, path: "/api/gallery/999", token: token,
			body: []byte(`{"image_url":"/media/a.png"}`), wantCode: http.StatusNotFound,
		},
		{
			name: "updated", method: http.MethodPut, path: path, token: token,
			body: []byte(`{"image_url":"/media/b.png","category":"Campus","is_active":false}`),
		},
	})

	rec, err := env.showcase.Get(context.Background(), showcase.KindGallery, img.Base().ID)
	require.NoError(t, err)
	got := rec.(*showcase.GalleryImage)
	assert.Equal(t, "/media/b.png", got.ImageURL)
	assert.Equal(t, "campus", got.Category)
	assert.False(t, got.IsActive)
	assert.True(t, got.CreatedAt.Equal(img.Base().CreatedAt))
}

func Test_showcaseApi_destroy(t *testing.T) {
	env := setup(t)

	editor := env.createUser(t, "Editor", "editor", []string{user.RoleAdminEditor}, true)
	token := env.token(t, editor)

	var ids []int
	for _, msg := range []string{"one", "two", "three"} {
		rec := testutil.CreateRecord(t, env.showcase, &showcase.Testimonial{Meta: showcase.Meta{IsActive: true}, Name: "Name", Message: msg})
		ids = append(ids, rec.Base().ID)
	}

	runHTTPTests(t, env, []httpTest{
		{name: "auth required", method: http.MethodDelete, path: fmt.Sprintf("/api/testimonials/%d", ids[0]), wantCode: http.StatusUnauthorized},
		{name: "one", method: http.MethodDelete, path: fmt.Sprintf("/api/testimonials/%d", ids[0]), token: token, wantCode: http.StatusNoContent},
		{name: "unknown", method: http.MethodDelete, path: "/api/testimonials/999", token: token, wantCode: http.StatusNotFound},
		{name: "no ids", method: http.MethodDelete, path: "/api/testimonials", token: token, wantCode: http.StatusBadRequest},
		{
			name: "many", method: http.MethodDelete, path: fmt.Sprintf("/api/testimonials?id=%d&id=%d", ids[1], ids[2]),
			token: token, wantCode: http.StatusNoContent,
		},
	})

	recs, err := env.showcase.List(context.Background(), showcase.KindTestimonials, showcase.Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
