package showcase

import "strings"

var commonColumns = []string{"sort_order", "is_active", "created_at", "updated_at"}

// Collection describes how a kind of record is stored.
type Collection struct {
	Kind  Kind
	Table string
	// Columns are the writable columns, id excluded.
	Columns []string
	// Search lists the columns matched by Filter.Search.
	Search    []string
	Orderable []string
	// Unique means no two items may share the natural key.
	Unique bool
	// Expires means the table has an expires_at column hiding items from the public.
	Expires bool

	new func() Record
}

// New returns an empty, active record of the collection.
func (s *Collection) New() Record {
	r := s.new()
	r.Base().IsActive = true
	return r
}

// DefaultOrdering is used when a listing asks for no valid ordering.
const DefaultOrdering = "sort_order ASC, id ASC"

func newCollection(kind Kind, table string, cols, search, orderable []string, newFn func() Record) *Collection {
	return &Collection{
		Kind:      kind,
		Table:     table,
		Columns:   append(append([]string{}, cols...), commonColumns...),
		Search:    search,
		Orderable: append([]string{"id", "sort_order", "created_at", "updated_at"}, orderable...),
		new:       newFn,
	}
}

var collections = map[Kind]*Collection{}

func init() {
	register := func(s *Collection) { collections[s.Kind] = s }

	register(newCollection(KindTestimonials, "testimonials",
		[]string{"name", "role", "message", "image_url", "rating"},
		[]string{"name", "role", "message"},
		[]string{"name", "rating"},
		func() Record { return new(Testimonial) },
	))
	register(newCollection(KindSliders, "home_sliders",
		[]string{"title", "subtitle", "image_url", "link_url", "button_text"},
		[]string{"title", "subtitle"},
		[]string{"title"},
		func() Record { return new(Slider) },
	))
	register(newCollection(KindGallery, "gallery_images",
		[]string{"title", "description", "image_url", "category"},
		[]string{"title", "description", "category"},
		[]string{"title", "category"},
		func() Record { return new(GalleryImage) },
	))

	news := newCollection(KindShortNews, "short_news",
		[]string{"text", "link_url", "expires_at"},
		[]string{"text"},
		[]string{"expires_at"},
		func() Record { return new(ShortNews) },
	)
	news.Expires = true
	register(news)

	courses := newCollection(KindCourses, "courses",
		[]string{"title", "slug", "summary", "description", "duration", "eligibility", "image_url"},
		[]string{"title", "slug", "summary"},
		[]string{"title", "slug"},
		func() Record { return new(Course) },
	)
	courses.Unique = true
	register(courses)
}

// Lookup returns the collection of kind.
func Lookup(kind Kind) (*Collection, bool) {
	s, ok := collections[Kind(strings.ToLower(string(kind)))]
	return s, ok
}

// MustLookup is Lookup for kinds known at compile time.
func MustLookup(kind Kind) *Collection {
	s, ok := Lookup(kind)
	if !ok {
		panic("showcase: unknown kind " + string(kind))
	}
	return s
}
