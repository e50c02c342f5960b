package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/section"
)

type sectionApi struct {
	svc     *section.Service
	mailSvc core.EmailService
	auth    *authenticator
}

type TestMailRequest struct {
	To string `json:"to"`
}

func registerSectionAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *section.Service, mailSvc core.EmailService) {
	api := sectionApi{svc: svc, mailSvc: mailSvc, auth: auth}
	admin := adminMiddleware(auth)

	for _, key := range section.Keys {
		sg := g.Group("/" + string(key))
		if section.IsPublic(key) {
			sg.GET("", api.retrieve(key))
		} else {
			sg.GET("", api.retrieve(key), jwt, admin)
		}
		sg.PUT("", api.update(key), jwt, admin)
	}
	g.POST("/"+string(section.KeySMTP)+"/test", api.sendTestMail, jwt, admin)
}

func (api *sectionApi) retrieve(key section.Key) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := api.svc.Get(ctx.Request().Context(), key)
		if err != nil {
			return errors.Wrapf(err, "getting %s", key)
		}
		return ctx.JSON(http.StatusOK, redacted(s))
	}
}

func (api *sectionApi) update(key section.Key) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s := section.New(key)
		if err := ctx.Bind(s); err != nil {
			return errors.Wrapf(err, "binding to %s", key)
		}
		if err := api.svc.Save(ctx.Request().Context(), s); err != nil {
			return errors.Wrapf(err, "saving %s", key)
		}
		return ctx.JSON(http.StatusOK, redacted(s))
	}
}

// sendTestMail sends a message through the stored settings so the admin can check them.
func (api *sectionApi) sendTestMail(ctx echo.Context) error {
	var data TestMailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestMailRequest")
	}

	to := core.CleanString(data.To, true /* lower */)
	if to == "" {
		usr, err := api.auth.contextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		to = usr.Email.String
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return core.NewFieldError("to", errors.New("enter a valid email address"))
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      "Test email",
		TemplateName: "smtp_test",
	}
	if err := api.mailSvc.Send(msg); err != nil {
		// the admin needs the SMTP error to fix the settings
		return core.NewValidationError(errors.Wrap(err, "sending test email"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Test email sent to " + addr.Address + "."})
}

func redacted(s section.Section) section.Section {
	if smtp, ok := s.(*section.SMTPSettings); ok {
		smtp.Redact()
	}
	return s
}
