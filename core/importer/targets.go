package importer

import (
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/showcase"
)

// target is a section or collection fed by one or more localStorage keys.
type target struct {
	name    string
	keys    []string
	section section.Key
	kind    showcase.Kind
	fields  fields
	// bare is the field receiving list items given as plain strings (e.g. image URLs).
	bare string
}

func (t target) isSection() bool { return t.section != "" }

var imageAliases = []string{"imageUrl", "image", "img", "src", "url", "photo", "photoUrl", "picture"}

var metaFields = fields{
	num("sort_order", "sortOrder", "order", "position"),
	flag("is_active", "isActive", "active", "visible", "enabled", "published"),
}

func withMeta(fs ...field) fields {
	return append(fs, metaFields...)
}

var targets = []target{
	{
		name: string(section.KeyHero), section: section.KeyHero,
		keys: []string{"hero", "heroBanner", "heroData", "hero_banner", "adminHero", "heroSection"},
		fields: fields{
			str("title", 255, "heroTitle", "heading", "headline"),
			str("subtitle", 255, "subTitle", "heroSubtitle", "tagline", "subheading"),
			str("image_url", 1024, append([]string{"backgroundImage", "bgImage", "heroImage"}, imageAliases...)...),
			str("cta_text", 255, "ctaText", "buttonText", "button"),
			str("cta_link", 1024, "ctaLink", "buttonLink", "link"),
		},
	},
	{
		name: string(section.KeyAboutGroup), section: section.KeyAboutGroup,
		keys: []string{"aboutGroup", "about_group", "aboutGroupData", "aboutData", "about", "adminAboutGroup"},
		fields: fields{
			str("title", 255, "heading"),
			str("subtitle", 255, "subTitle", "tagline"),
			text("description", "content", "body", "about", "text"),
			str("image_url", 1024, imageAliases...),
			objList("staff_members", 100, fields{
				str("name", 255, "fullName", "staffName"),
				str("designation", 255, "position", "role", "title", "post"),
				str("image_url", 1024, imageAliases...),
				str("bio", 5000, "description", "about", "details"),
			}, "staffMembers", "staff", "team", "members"),
			objList("institutions", 50, fields{
				str("name", 255, "title", "institutionName"),
				str("description", 5000, "details", "about", "text"),
				str("image_url", 1024, append([]string{"logo"}, imageAliases...)...),
				str("link", 1024, "website", "href", "linkUrl"),
			}, "institutes", "colleges", "schools"),
		},
	},
	{
		name: string(section.KeyDirectorsDesk), section: section.KeyDirectorsDesk,
		keys: []string{"directorsDesk", "directorDesk", "directors_desk", "directorsDeskData", "directorMessage"},
		fields: fields{
			str("title", 255, "heading"),
			str("director_name", 255, "directorName", "name", "director"),
			str("designation", 255, "position", "role"),
			text("message", "content", "text", "body", "description"),
			str("image_url", 1024, append([]string{"directorImage"}, imageAliases...)...),
			str("signature", 255, "sign"),
		},
	},
	{
		name: string(section.KeyPhilosophy), section: section.KeyPhilosophy,
		keys: []string{"philosophy", "philosophyData", "ourPhilosophy", "adminPhilosophy"},
		fields: fields{
			str("title", 255, "heading"),
			text("vision", "visionText", "ourVision"),
			text("mission", "missionText", "ourMission"),
			text("description", "content", "text", "body"),
			strList("aims_objectives", 50, 1000, "aimsObjectives", "aimsAndObjectives", "aims", "objectives"),
			strList("core_values", 50, 1000, "coreValues", "values"),
		},
	},
	{
		name: string(section.KeyPlacements), section: section.KeyPlacements,
		keys: []string{"outstandingPlacements", "placements", "placementsData", "outstanding_placements"},
		fields: fields{
			str("title", 255, "heading"),
			text("description", "content", "text"),
			objList("placements", 500, fields{
				str("student_name", 255, "studentName", "name", "student"),
				str("company", 255, "companyName", "organization", "employer"),
				str("package", 100, "salary", "ctc", "packageOffered"),
				str("course", 255, "program", "branch", "department"),
				str("batch", 50, "year", "passingYear"),
				str("image_url", 1024, imageAliases...),
			}, "students", "items", "list"),
		},
	},
	{
		name: string(section.KeyContact), section: section.KeyContact,
		keys: []string{"contact", "contactInfo", "contactData", "contact_info", "adminContact"},
		fields: fields{
			str("address", 1024, "fullAddress", "location"),
			str("phone", 50, "phoneNumber", "mobile", "telephone"),
			str("alt_phone", 50, "altPhone", "alternatePhone", "phone2"),
			str("email", 255, "emailAddress", "mail"),
			str("map_embed_url", 2048, "mapEmbedUrl", "mapUrl", "map", "googleMap"),
			str("office_hours", 255, "officeHours", "hours", "timings"),
			objList("social_links", 20, fields{
				str("platform", 50, "name", "type", "network"),
				str("url", 1024, "link", "href"),
			}, "socialLinks", "social", "socials"),
		},
	},
	{
		name: string(section.KeySMTP), section: section.KeySMTP,
		keys: []string{"smtpSettings", "smtp", "smtp_settings", "emailSettings"},
		fields: fields{
			str("host", 255, "smtpHost", "server"),
			num("port", "smtpPort"),
			str("username", 255, "user", "smtpUser"),
			str("password", 255, "pass", "smtpPassword"),
			str("from_email", 255, "fromEmail", "from", "sender"),
			str("from_name", 255, "fromName", "senderName"),
			flag("use_tls", "useTls", "secure", "tls", "ssl"),
			str("notify_email", 255, "notifyEmail", "adminEmail", "toEmail", "receiverEmail"),
		},
	},
	{
		name: string(showcase.KindTestimonials), kind: showcase.KindTestimonials,
		keys: []string{"testimonials", "testimonialsData", "adminTestimonials"},
		fields: withMeta(
			str("name", 255, "studentName", "author", "fullName"),
			str("role", 255, "designation", "position", "course", "batch"),
			text("message", "text", "content", "testimonial", "quote", "review"),
			str("image_url", 1024, imageAliases...),
			num("rating", "stars", "score"),
		),
	},
	{
		name: string(showcase.KindSliders), kind: showcase.KindSliders, bare: "image_url",
		keys: []string{"homeSliders", "sliders", "sliderData", "home_sliders", "heroSlides", "slides"},
		fields: withMeta(
			str("title", 255, "heading", "caption"),
			str("subtitle", 255, "subTitle", "description", "text"),
			str("image_url", 1024, imageAliases...),
			str("link_url", 1024, "linkUrl", "link", "href", "buttonLink"),
			str("button_text", 100, "buttonText", "cta", "ctaText"),
		),
	},
	{
		name: string(showcase.KindGallery), kind: showcase.KindGallery, bare: "image_url",
		keys: []string{"gallery", "galleryImages", "galleryData", "gallery_images", "adminGallery"},
		fields: withMeta(
			str("title", 255, "caption", "name", "alt"),
			text("description", "details", "text"),
			str("image_url", 1024, imageAliases...),
			str("category", 100, "album", "tag", "type"),
		),
	},
	{
		name: string(showcase.KindShortNews), kind: showcase.KindShortNews, bare: "text",
		keys: []string{"shortNews", "news", "short_news", "newsTicker", "shortNewsData"},
		fields: withMeta(
			str("text", 500, "title", "content", "news", "headline", "message"),
			str("link_url", 1024, "linkUrl", "link", "href", "url"),
			when("expires_at", "expiresAt", "expiry", "expiryDate", "validTill"),
		),
	},
	{
		name: string(showcase.KindCourses), kind: showcase.KindCourses,
		keys: []string{"courses", "coursesData", "courseList", "adminCourses"},
		fields: withMeta(
			str("title", 255, "name", "courseName"),
			str("slug", 255, "code", "courseSlug"),
			str("summary", 1024, "shortDescription", "excerpt", "tagline"),
			text("description", "details", "content", "about"),
			str("duration", 100, "period", "length"),
			str("eligibility", 1024, "criteria", "requirements"),
			str("image_url", 1024, imageAliases...),
		),
	},
}
