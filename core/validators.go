package core

import (
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	urlOrPathTag  = "httpurl_or_path"
	urlOrPathText = "must be an http(s) URL or a path starting with /"

	// maxBytesTag caps the encoded size of strings stored in byte-limited columns (TEXT).
	maxBytesTag  = "maxbytes"
	maxBytesText = "{0} must be a maximum of {1} bytes in length"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// Validator pairs a validator with the translator used to render its errors.
type Validator struct {
	*validator.Validate
	Translator ut.Translator
}

// NewValidator returns a validator with the english translations and every global custom validation registered.
func NewValidator() *Validator {
	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	InitValidators(validate, translator)
	return &Validator{Validate: validate, Translator: translator}
}

// Check validates s. Field failures are returned as a *ValidationError.
func (v *Validator) Check(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		return NewValidationError(nil, TranslateErrors(vErrs, v.Translator)...)
	}
	return errors.Wrap(err, "validating")
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(urlOrPathTag, urlOrPathValidation)
	RegisterCustomTranslation(validate, translator, urlOrPathTag, urlOrPathText)

	_ = validate.RegisterValidation(maxBytesTag, maxBytesValidation)
	_ = validate.RegisterTranslation(
		maxBytesTag, translator,
		func(t ut.Translator) error { return t.Add(maxBytesTag, maxBytesText, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(maxBytesTag, fe.Field(), fe.Param())
			return s
		},
	)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateErrors flattens validator.ValidationErrors into field errors keyed by their JSON path.
func TranslateErrors(errs validator.ValidationErrors, translator ut.Translator) []FieldError {
	flds := make([]FieldError, 0, len(errs))
	for _, vErr := range errs {
		// drop the struct name: "Testimonial.name" -> "name", "AboutGroup.staff_members[0].name" -> "staff_members[0].name"
		ns := vErr.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		flds = append(flds, FieldError{Field: ns, Error: vErr.Translate(translator)})
	}
	return flds
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// maxBytesValidation compares the UTF-8 length of the string with the tag param.
func maxBytesValidation(fl validator.FieldLevel) bool {
	max, err := strconv.Atoi(fl.Param())
	if err != nil {
		panic(errors.Wrapf(err, "bad %s param %q", maxBytesTag, fl.Param()))
	}
	return len(fl.Field().String()) <= max
}

// urlOrPathValidation accepts absolute http(s) URLs and site-relative paths; empty values pass.
func urlOrPathValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
