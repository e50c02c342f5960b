package emailsvc

import (
	"log"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
)

// New returns the email service selected by conf.Mail.Backend.
// settings is only read by the smtp backend.
func New(conf *core.Config, tmpls *core.EmailTemplates, settings SettingsSource, logger core.Logger, std *log.Logger) (core.EmailService, error) {
	switch conf.Mail.Backend {
	case "console":
		return NewConsoleService(conf, tmpls, std), nil
	case "sendgrid":
		if conf.Mail.SendgridAPIKey == "" {
			return nil, errors.New("mail.sendgridAPIKey is required by the sendgrid backend")
		}
		return NewSendgridService(conf, tmpls, logger), nil
	case "smtp":
		if settings == nil {
			return nil, errors.New("the smtp backend needs a settings source")
		}
		return NewSMTPService(conf, tmpls, settings, logger), nil
	}
	return nil, errors.Errorf("unknown mail backend %q", conf.Mail.Backend)
}
