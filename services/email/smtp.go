package emailsvc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/section"
)

var (
	// ErrNotConfigured is returned while the smtp-settings section lacks a host or a sender.
	ErrNotConfigured = errors.New("smtp is not configured")
	// ErrStartTLSUnsupported is returned when use_tls is set and the server does not offer STARTTLS.
	ErrStartTLSUnsupported = errors.New("the smtp server does not support STARTTLS")
)

var (
	sendMailFunc = smtp.SendMail // mockable
	dialTimeout  = 10 * time.Second
)

// SettingsSource provides the current SMTP settings.
type SettingsSource interface {
	SMTP(ctx context.Context) (section.SMTPSettings, error)
}

// smtpService reads its settings on every send so admin edits apply without a restart.
type smtpService struct {
	tmpls      *core.EmailTemplates
	settings   SettingsSource
	fallback   mail.Address
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config, tmpls *core.EmailTemplates, settings SettingsSource, logger core.Logger) *smtpService {
	return &smtpService{
		tmpls:      tmpls,
		settings:   settings,
		fallback:   conf.DefaultFrom(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *smtpService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := svc.Send(msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			}
		}()
	}
}

func (svc *smtpService) Send(msg *core.EmailMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conf, err := svc.settings.SMTP(ctx)
	if err != nil {
		return errors.Wrap(err, "loading smtp settings")
	}
	if !conf.Configured() {
		return ErrNotConfigured
	}

	ok, err := prepare(svc.tmpls, msg)
	if err != nil || !ok {
		return err
	}

	from := mail.Address{Name: conf.FromName, Address: conf.FromEmail}
	if from.Name == "" {
		from.Name = svc.fallback.Name
	}
	from = senderOf(*msg, from)
	data, err := buildMIME(from, svc.subjPrefix+msg.Subject, *msg)
	if err != nil {
		return errors.Wrap(err, "building message")
	}

	addr := net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port))
	var auth smtp.Auth
	if conf.Username != "" {
		auth = smtp.PlainAuth("", conf.Username, conf.Password, conf.Host)
	}

	switch {
	case conf.UseTLS && conf.Port == 465:
		err = sendMailTLS(addr, conf.Host, auth, from.Address, msg.Recipients(), data)
	case conf.UseTLS:
		err = sendMailStartTLS(addr, conf.Host, auth, from.Address, msg.Recipients(), data)
	default:
		// smtp.SendMail upgrades with STARTTLS when the server offers it
		err = sendMailFunc(addr, auth, from.Address, msg.Recipients(), data)
	}
	return errors.Wrapf(err, "sending mail through %s", addr)
}

func tlsConfig(host string) *tls.Config {
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

// sendMailTLS delivers over an implicit TLS connection (SMTPS).
func sendMailTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig(host))
	if err != nil {
		return errors.Wrap(err, "dialing")
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "starting session")
	}
	defer c.Close()
	return deliver(c, auth, from, to, msg)
}

// sendMailStartTLS upgrades a plain connection with STARTTLS and refuses to go on without it.
func sendMailStartTLS(addr, host string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return errors.Wrap(err, "dialing")
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "starting session")
	}
	defer c.Close()

	if err = c.Hello("localhost"); err != nil {
		return errors.Wrap(err, "greeting")
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return ErrStartTLSUnsupported
	}
	if err = c.StartTLS(tlsConfig(host)); err != nil {
		return errors.Wrap(err, "starting tls")
	}
	return deliver(c, auth, from, to, msg)
}

func deliver(c *smtp.Client, auth smtp.Auth, from string, to []string, msg []byte) error {
	var err error
	if auth != nil {
		if err = c.Auth(auth); err != nil {
			return errors.Wrap(err, "authenticating")
		}
	}
	if err = c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err = c.Rcpt(rcpt); err != nil {
			return errors.Wrapf(err, "rcpt %s", rcpt)
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
