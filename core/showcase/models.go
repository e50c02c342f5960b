package showcase

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/vitrine/core"
)

type Kind string

const (
	KindTestimonials Kind = "testimonials"
	KindSliders      Kind = "sliders"
	KindGallery      Kind = "gallery"
	KindShortNews    Kind = "short-news"
	KindCourses      Kind = "courses"
)

var Kinds = []Kind{KindTestimonials, KindSliders, KindGallery, KindShortNews, KindCourses}

// Meta holds the columns shared by every collection table.
type Meta struct {
	ID        int       `json:"id" db:"id"`
	SortOrder int       `json:"sort_order" db:"sort_order" validate:"min=0"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (m *Meta) Base() *Meta { return m }

// Record is an item of a collection. Implementations are struct pointers embedding Meta.
type Record interface {
	Kind() Kind
	Base() *Meta
	Clean()
	// NaturalKey maps columns to the values identifying the item regardless of its id.
	NaturalKey() map[string]interface{}
}

type Testimonial struct {
	Meta
	Name     string `json:"name" db:"name" validate:"required,max=255"`
	Role     string `json:"role" db:"role" validate:"max=255"`
	Message  string `json:"message" db:"message" validate:"required,maxbytes=65535"`
	ImageURL string `json:"image_url" db:"image_url" validate:"max=1024,httpurl_or_path"`
	Rating   int    `json:"rating" db:"rating" validate:"min=0,max=5"`
}

func (*Testimonial) Kind() Kind { return KindTestimonials }

func (t *Testimonial) Clean() {
	t.Name = core.CleanString(t.Name)
	t.Role = core.CleanString(t.Role)
	t.Message = core.CleanString(t.Message)
	t.ImageURL = core.CleanString(t.ImageURL)
}

func (t *Testimonial) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"name": t.Name, "message": t.Message}
}

type Slider struct {
	Meta
	Title      string `json:"title" db:"title" validate:"max=255"`
	Subtitle   string `json:"subtitle" db:"subtitle" validate:"max=255"`
	ImageURL   string `json:"image_url" db:"image_url" validate:"required,max=1024,httpurl_or_path"`
	LinkURL    string `json:"link_url" db:"link_url" validate:"max=1024,httpurl_or_path"`
	ButtonText string `json:"button_text" db:"button_text" validate:"max=100"`
}

func (*Slider) Kind() Kind { return KindSliders }

func (s *Slider) Clean() {
	s.Title = core.CleanString(s.Title)
	s.Subtitle = core.CleanString(s.Subtitle)
	s.ImageURL = core.CleanString(s.ImageURL)
	s.LinkURL = core.CleanString(s.LinkURL)
	s.ButtonText = core.CleanString(s.ButtonText)
}

func (s *Slider) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"image_url": s.ImageURL}
}

type GalleryImage struct {
	Meta
	Title       string `json:"title" db:"title" validate:"max=255"`
	Description string `json:"description" db:"description" validate:"maxbytes=65535"`
	ImageURL    string `json:"image_url" db:"image_url" validate:"required,max=1024,httpurl_or_path"`
	Category    string `json:"category" db:"category" validate:"max=100"`
}

func (*GalleryImage) Kind() Kind { return KindGallery }

func (g *GalleryImage) Clean() {
	g.Title = core.CleanString(g.Title)
	g.Description = core.CleanString(g.Description)
	g.ImageURL = core.CleanString(g.ImageURL)
	g.Category = core.CleanString(g.Category, true /* lower */)
}

func (g *GalleryImage) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"image_url": g.ImageURL}
}

type ShortNews struct {
	Meta
	Text      string    `json:"text" db:"text" validate:"required,max=500"`
	LinkURL   string    `json:"link_url" db:"link_url" validate:"max=1024,httpurl_or_path"`
	ExpiresAt null.Time `json:"expires_at" db:"expires_at"` // UTC
}

func (*ShortNews) Kind() Kind { return KindShortNews }

func (n *ShortNews) Clean() {
	n.Text = core.CleanString(n.Text)
	n.LinkURL = core.CleanString(n.LinkURL)
	if n.ExpiresAt.Valid {
		n.ExpiresAt.Time = n.ExpiresAt.Time.UTC()
	}
}

func (n *ShortNews) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"text": n.Text}
}

// Expired reports whether the news stopped being shown at t.
func (n *ShortNews) Expired(t time.Time) bool {
	return n.ExpiresAt.Valid && !n.ExpiresAt.Time.After(t)
}

type Course struct {
	Meta
	Title       string `json:"title" db:"title" validate:"required,max=255"`
	Slug        string `json:"slug" db:"slug" validate:"required,max=255"`
	Summary     string `json:"summary" db:"summary" validate:"max=1024"`
	Description string `json:"description" db:"description" validate:"maxbytes=65535"`
	Duration    string `json:"duration" db:"duration" validate:"max=100"`
	Eligibility string `json:"eligibility" db:"eligibility" validate:"max=1024"`
	ImageURL    string `json:"image_url" db:"image_url" validate:"max=1024,httpurl_or_path"`
}

func (*Course) Kind() Kind { return KindCourses }

func (c *Course) Clean() {
	c.Title = core.CleanString(c.Title)
	c.Slug = core.CleanString(c.Slug)
	if c.Slug == "" {
		c.Slug = c.Title
	}
	c.Slug = core.Slugify(c.Slug)
	c.Summary = core.CleanString(c.Summary)
	c.Description = core.CleanString(c.Description)
	c.Duration = core.CleanString(c.Duration)
	c.Eligibility = core.CleanString(c.Eligibility)
	c.ImageURL = core.CleanString(c.ImageURL)
}

func (c *Course) NaturalKey() map[string]interface{} {
	return map[string]interface{}{"slug": c.Slug}
}

// Filter narrows a listing.
type Filter struct {
	Search string
	// ActiveOnly hides inactive items and news expired at Now.
	ActiveOnly bool
	Now        time.Time
	Ordering   []core.DBOrdering
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search)
}
