package section

import (
	"time"

	"github.com/trezcool/vitrine/core"
)

// Key identifies a section in URLs and import reports.
type Key string

const (
	KeyHero          Key = "hero"
	KeyAboutGroup    Key = "about-group"
	KeyDirectorsDesk Key = "directors-desk"
	KeyPhilosophy    Key = "philosophy"
	KeyPlacements    Key = "placements"
	KeyContact       Key = "contact"
	KeySMTP          Key = "smtp-settings"
)

// Section is a single-row content area of the site.
// Implementations are pointers to structs whose `db` tags match Columns.
type Section interface {
	Key() Key
	Table() string
	Columns() []string
	SetDefaults()
	Clean()
	Touch(t time.Time)
}

// New returns an empty section for key, or nil if key is unknown.
func New(key Key) Section {
	switch key {
	case KeyHero:
		return new(Hero)
	case KeyAboutGroup:
		return new(AboutGroup)
	case KeyDirectorsDesk:
		return new(DirectorsDesk)
	case KeyPhilosophy:
		return new(Philosophy)
	case KeyPlacements:
		return new(Placements)
	case KeyContact:
		return new(Contact)
	case KeySMTP:
		return new(SMTPSettings)
	}
	return nil
}

// Keys lists every section, public ones first.
var Keys = []Key{KeyHero, KeyAboutGroup, KeyDirectorsDesk, KeyPhilosophy, KeyPlacements, KeyContact, KeySMTP}

type Hero struct {
	Title     string    `json:"title" db:"title" validate:"max=255"`
	Subtitle  string    `json:"subtitle" db:"subtitle" validate:"max=255"`
	ImageURL  string    `json:"image_url" db:"image_url" validate:"max=1024,httpurl_or_path"`
	CTAText   string    `json:"cta_text" db:"cta_text" validate:"max=255"`
	CTALink   string    `json:"cta_link" db:"cta_link" validate:"max=1024,httpurl_or_path"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (*Hero) Key() Key            { return KeyHero }
func (*Hero) Table() string       { return "hero_banner" }
func (h *Hero) Touch(t time.Time) { h.UpdatedAt = t }
func (*Hero) Columns() []string {
	return []string{"title", "subtitle", "image_url", "cta_text", "cta_link", "updated_at"}
}

func (h *Hero) SetDefaults() {
	*h = Hero{Title: "Welcome"}
}

func (h *Hero) Clean() {
	h.Title = core.CleanString(h.Title)
	h.Subtitle = core.CleanString(h.Subtitle)
	h.ImageURL = core.CleanString(h.ImageURL)
	h.CTAText = core.CleanString(h.CTAText)
	h.CTALink = core.CleanString(h.CTALink)
}

type StaffMember struct {
	Name        string `json:"name" validate:"required,max=255"`
	Designation string `json:"designation" validate:"max=255"`
	ImageURL    string `json:"image_url" validate:"max=1024,httpurl_or_path"`
	Bio         string `json:"bio" validate:"max=5000"`
}

type Institution struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	ImageURL    string `json:"image_url" validate:"max=1024,httpurl_or_path"`
	Link        string `json:"link" validate:"max=1024,httpurl_or_path"`
}

type AboutGroup struct {
	Title        string                     `json:"title" db:"title" validate:"max=255"`
	Subtitle     string                     `json:"subtitle" db:"subtitle" validate:"max=255"`
	Description  string                     `json:"description" db:"description" validate:"maxbytes=65535"`
	ImageURL     string                     `json:"image_url" db:"image_url" validate:"max=1024,httpurl_or_path"`
	StaffMembers core.JSONList[StaffMember] `json:"staff_members" db:"staff_members" validate:"max=100,dive"`
	Institutions core.JSONList[Institution] `json:"institutions" db:"institutions" validate:"max=50,dive"`
	UpdatedAt    time.Time                  `json:"updated_at" db:"updated_at"`
}

func (*AboutGroup) Key() Key            { return KeyAboutGroup }
func (*AboutGroup) Table() string       { return "about_group" }
func (a *AboutGroup) Touch(t time.Time) { a.UpdatedAt = t }
func (*AboutGroup) Columns() []string {
	return []string{"title", "subtitle", "description", "image_url", "staff_members", "institutions", "updated_at"}
}

func (a *AboutGroup) SetDefaults() {
	*a = AboutGroup{
		Title:        "About Us",
		StaffMembers: core.JSONList[StaffMember]{},
		Institutions: core.JSONList[Institution]{},
	}
}

func (a *AboutGroup) Clean() {
	a.Title = core.CleanString(a.Title)
	a.Subtitle = core.CleanString(a.Subtitle)
	a.Description = core.CleanString(a.Description)
	a.ImageURL = core.CleanString(a.ImageURL)
	for i := range a.StaffMembers {
		m := &a.StaffMembers[i]
		m.Name = core.CleanString(m.Name)
		m.Designation = core.CleanString(m.Designation)
		m.ImageURL = core.CleanString(m.ImageURL)
		m.Bio = core.CleanString(m.Bio)
	}
	for i := range a.Institutions {
		in := &a.Institutions[i]
		in.Name = core.CleanString(in.Name)
		in.Description = core.CleanString(in.Description)
		in.ImageURL = core.CleanString(in.ImageURL)
		in.Link = core.CleanString(in.Link)
	}
}

type DirectorsDesk struct {
	Title        string    `json:"title" db:"title" validate:"max=255"`
	DirectorName string    `json:"director_name" db:"director_name" validate:"max=255"`
	Designation  string    `json:"designation" db:"designation" validate:"max=255"`
	Message      string    `json:"message" db:"message" validate:"maxbytes=65535"`
	ImageURL     string    `json:"image_url" db:"image_url" validate:"max=1024,httpurl_or_path"`
	Signature    string    `json:"signature" db:"signature" validate:"max=255"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (*DirectorsDesk) Key() Key            { return KeyDirectorsDesk }
func (*DirectorsDesk) Table() string       { return "directors_desk" }
func (d *DirectorsDesk) Touch(t time.Time) { d.UpdatedAt = t }
func (*DirectorsDesk) Columns() []string {
	return []string{"title", "director_name", "designation", "message", "image_url", "signature", "updated_at"}
}

func (d *DirectorsDesk) SetDefaults() {
	*d = DirectorsDesk{Title: "From the Director's Desk"}
}

func (d *DirectorsDesk) Clean() {
	d.Title = core.CleanString(d.Title)
	d.DirectorName = core.CleanString(d.DirectorName)
	d.Designation = core.CleanString(d.Designation)
	d.Message = core.CleanString(d.Message)
	d.ImageURL = core.CleanString(d.ImageURL)
	d.Signature = core.CleanString(d.Signature)
}

type Philosophy struct {
	Title          string                `json:"title" db:"title" validate:"max=255"`
	Vision         string                `json:"vision" db:"vision" validate:"maxbytes=65535"`
	Mission        string                `json:"mission" db:"mission" validate:"maxbytes=65535"`
	Description    string                `json:"description" db:"description" validate:"maxbytes=65535"`
	AimsObjectives core.JSONList[string] `json:"aims_objectives" db:"aims_objectives" validate:"max=50,dive,notblank,max=1000"`
	CoreValues     core.JSONList[string] `json:"core_values" db:"core_values" validate:"max=50,dive,notblank,max=1000"`
	UpdatedAt      time.Time             `json:"updated_at" db:"updated_at"`
}

func (*Philosophy) Key() Key            { return KeyPhilosophy }
func (*Philosophy) Table() string       { return "philosophy" }
func (p *Philosophy) Touch(t time.Time) { p.UpdatedAt = t }
func (*Philosophy) Columns() []string {
	return []string{"title", "vision", "mission", "description", "aims_objectives", "core_values", "updated_at"}
}

func (p *Philosophy) SetDefaults() {
	*p = Philosophy{
		Title:          "Our Philosophy",
		AimsObjectives: core.JSONList[string]{},
		CoreValues:     core.JSONList[string]{},
	}
}

func (p *Philosophy) Clean() {
	p.Title = core.CleanString(p.Title)
	p.Vision = core.CleanString(p.Vision)
	p.Mission = core.CleanString(p.Mission)
	p.Description = core.CleanString(p.Description)
	for i := range p.AimsObjectives {
		p.AimsObjectives[i] = core.CleanString(p.AimsObjectives[i])
	}
	for i := range p.CoreValues {
		p.CoreValues[i] = core.CleanString(p.CoreValues[i])
	}
}

type Placement struct {
	StudentName string `json:"student_name" validate:"required,max=255"`
	Company     string `json:"company" validate:"max=255"`
	Package     string `json:"package" validate:"max=100"`
	Course      string `json:"course" validate:"max=255"`
	Batch       string `json:"batch" validate:"max=50"`
	ImageURL    string `json:"image_url" validate:"max=1024,httpurl_or_path"`
}

type Placements struct {
	Title       string                   `json:"title" db:"title" validate:"max=255"`
	Description string                   `json:"description" db:"description" validate:"maxbytes=65535"`
	Placements  core.JSONList[Placement] `json:"placements" db:"placements" validate:"max=500,dive"`
	UpdatedAt   time.Time                `json:"updated_at" db:"updated_at"`
}

func (*Placements) Key() Key            { return KeyPlacements }
func (*Placements) Table() string       { return "outstanding_placements" }
func (p *Placements) Touch(t time.Time) { p.UpdatedAt = t }
func (*Placements) Columns() []string {
	return []string{"title", "description", "placements", "updated_at"}
}

func (p *Placements) SetDefaults() {
	*p = Placements{Title: "Outstanding Placements", Placements: core.JSONList[Placement]{}}
}

func (p *Placements) Clean() {
	p.Title = core.CleanString(p.Title)
	p.Description = core.CleanString(p.Description)
	for i := range p.Placements {
		pl := &p.Placements[i]
		pl.StudentName = core.CleanString(pl.StudentName)
		pl.Company = core.CleanString(pl.Company)
		pl.Package = core.CleanString(pl.Package)
		pl.Course = core.CleanString(pl.Course)
		pl.Batch = core.CleanString(pl.Batch)
		pl.ImageURL = core.CleanString(pl.ImageURL)
	}
}

type SocialLink struct {
	Platform string `json:"platform" validate:"required,max=50"`
	URL      string `json:"url" validate:"required,max=1024,httpurl_or_path"`
}

type Contact struct {
	Address     string                    `json:"address" db:"address" validate:"max=1024"`
	Phone       string                    `json:"phone" db:"phone" validate:"max=50"`
	AltPhone    string                    `json:"alt_phone" db:"alt_phone" validate:"max=50"`
	Email       string                    `json:"email" db:"email" validate:"omitempty,email,max=255"`
	MapEmbedURL string                    `json:"map_embed_url" db:"map_embed_url" validate:"max=2048,httpurl_or_path"`
	OfficeHours string                    `json:"office_hours" db:"office_hours" validate:"max=255"`
	SocialLinks core.JSONList[SocialLink] `json:"social_links" db:"social_links" validate:"max=20,dive"`
	UpdatedAt   time.Time                 `json:"updated_at" db:"updated_at"`
}

func (*Contact) Key() Key            { return KeyContact }
func (*Contact) Table() string       { return "contact_info" }
func (c *Contact) Touch(t time.Time) { c.UpdatedAt = t }
func (*Contact) Columns() []string {
	return []string{"address", "phone", "alt_phone", "email", "map_embed_url", "office_hours", "social_links", "updated_at"}
}

func (c *Contact) SetDefaults() {
	*c = Contact{SocialLinks: core.JSONList[SocialLink]{}}
}

func (c *Contact) Clean() {
	c.Address = core.CleanString(c.Address)
	c.Phone = core.CleanString(c.Phone)
	c.AltPhone = core.CleanString(c.AltPhone)
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.MapEmbedURL = core.CleanString(c.MapEmbedURL)
	c.OfficeHours = core.CleanString(c.OfficeHours)
	for i := range c.SocialLinks {
		c.SocialLinks[i].Platform = core.CleanString(c.SocialLinks[i].Platform, true /* lower */)
		c.SocialLinks[i].URL = core.CleanString(c.SocialLinks[i].URL)
	}
}

// SMTPSettings configures outgoing mail. Password is write-only: see Redact.
type SMTPSettings struct {
	Host        string    `json:"host" db:"host" validate:"omitempty,hostname|ip,max=255"`
	Port        int       `json:"port" db:"port" validate:"min=0,max=65535"`
	Username    string    `json:"username" db:"username" validate:"max=255"`
	Password    string    `json:"password,omitempty" db:"password" validate:"max=255"`
	HasPassword bool      `json:"has_password" db:"-"`
	FromEmail   string    `json:"from_email" db:"from_email" validate:"omitempty,email,max=255"`
	FromName    string    `json:"from_name" db:"from_name" validate:"max=255"`
	UseTLS      bool      `json:"use_tls" db:"use_tls"`
	NotifyEmail string    `json:"notify_email" db:"notify_email" validate:"omitempty,email,max=255"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (*SMTPSettings) Key() Key            { return KeySMTP }
func (*SMTPSettings) Table() string       { return "smtp_settings" }
func (s *SMTPSettings) Touch(t time.Time) { s.UpdatedAt = t }
func (*SMTPSettings) Columns() []string {
	return []string{"host", "port", "username", "password", "from_email", "from_name", "use_tls", "notify_email", "updated_at"}
}

func (s *SMTPSettings) SetDefaults() {
	*s = SMTPSettings{Port: 587}
}

func (s *SMTPSettings) Clean() {
	s.Host = core.CleanString(s.Host, true /* lower */)
	s.Username = core.CleanString(s.Username)
	s.FromEmail = core.CleanString(s.FromEmail, true /* lower */)
	s.FromName = core.CleanString(s.FromName)
	s.NotifyEmail = core.CleanString(s.NotifyEmail, true /* lower */)
	if s.Port == 0 {
		s.Port = 587
	}
}

// Configured reports whether enough is set to deliver mail.
func (s SMTPSettings) Configured() bool {
	return s.Host != "" && s.Port > 0 && s.FromEmail != ""
}

// Redact hides the stored password.
func (s *SMTPSettings) Redact() {
	s.HasPassword = s.Password != ""
	s.Password = ""
}

// keepSecrets keeps the stored password when none is submitted.
func (s *SMTPSettings) keepSecrets(stored Section) {
	if prev, ok := stored.(*SMTPSettings); ok && s.Password == "" {
		s.Password = prev.Password
	}
}

type secretKeeper interface {
	keepSecrets(stored Section)
}

var _ secretKeeper = (*SMTPSettings)(nil)
