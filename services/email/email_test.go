package emailsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/section"
	logsvc "github.com/trezcool/vitrine/services/logger"
)

type staticSettings struct {
	settings section.SMTPSettings
	err      error
}

func (s staticSettings) SMTP(context.Context) (section.SMTPSettings, error) { return s.settings, s.err }

func newTemplates(t *testing.T, conf *core.Config) *core.EmailTemplates {
	t.Helper()

	tmpls, err := core.ParseEmailTemplates(conf)
	require.NoError(t, err)
	return tmpls
}

func testLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func TestNew(t *testing.T) {
	conf := core.NewTestConfig()
	tmpls := newTemplates(t, conf)
	logger := testLogger(conf)

	tests := []struct {
		name    string
		backend string
		apiKey  string
		source  SettingsSource
		wantErr string
	}{
		{name: "console", backend: "console"},
		{name: "sendgrid", backend: "sendgrid", apiKey: "SG.key"},
		{name: "sendgrid without key", backend: "sendgrid", wantErr: "mail.sendgridAPIKey is required by the sendgrid backend"},
		{name: "smtp", backend: "smtp", source: staticSettings{}},
		{name: "smtp without settings", backend: "smtp", wantErr: "the smtp backend needs a settings source"},
		{name: "unknown", backend: "pigeon", wantErr: `unknown mail backend "pigeon"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *conf
			c.Mail.Backend = tt.backend
			c.Mail.SendgridAPIKey = tt.apiKey
			svc, err := New(&c, tmpls, tt.source, logger, log.Default())
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestBuildMIME(t *testing.T) {
	nowFunc = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFunc = time.Now })

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@test.cd"}, {Address: "office@test.cd"}},
		Cc:          []mail.Address{{Address: "cc@test.cd"}},
		ReplyTo:     &mail.Address{Address: "visitor@test.cd"},
		TextContent: "Hello",
		HTMLContent: "<p>Hello</p>",
	}
	data, err := buildMIME(mail.Address{Name: "Site", Address: "noreply@test.cd"}, "Bienvenue à vous", msg)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, `"Site" <noreply@test.cd>`, parsed.Header.Get("From"))
	assert.Equal(t, `"Jane" <jane@test.cd>, <office@test.cd>`, parsed.Header.Get("To"))
	assert.Equal(t, "<cc@test.cd>", parsed.Header.Get("Cc"))
	assert.Equal(t, "<visitor@test.cd>", parsed.Header.Get("Reply-To"))
	assert.Equal(t, "Sat, 01 Jun 2024 10:00:00 +0000", parsed.Header.Get("Date"))

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Bienvenue à vous", subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	var types, bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(part)
		require.NoError(t, err)
		types = append(types, part.Header.Get("Content-Type"))
		bodies = append(bodies, strings.TrimSpace(string(b)))
	}
	assert.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8"}, types)
	assert.Equal(t, []string{"Hello", "<p>Hello</p>"}, bodies)

	t.Run("attachments", func(t *testing.T) {
		m := msg
		require.NoError(t, m.Attach(strings.NewReader("a,b\n1,2\n"), "report.csv"))
		data, err := buildMIME(mail.Address{Address: "noreply@test.cd"}, "Report", m)
		require.NoError(t, err)

		parsed, err := mail.ReadMessage(bytes.NewReader(data))
		require.NoError(t, err)
		mediaType, _, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/mixed", mediaType)
		assert.Contains(t, string(data), `attachment; filename=report.csv`)
	})
}

func TestBuildMIME_lineLength(t *testing.T) {
	long := strings.Repeat("Je voudrais des informations sur les admissions. ", 120) // no line break
	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "office@test.cd"}},
		TextContent: long,
		HTMLContent: "<p>" + long + "</p>",
	}
	require.NoError(t, msg.Attach(strings.NewReader(strings.Repeat("a,b,c\n", 500)), "report.csv"))

	data, err := buildMIME(mail.Address{Address: "noreply@test.cd"}, "Enquiry", msg)
	require.NoError(t, err)
	for i, line := range strings.Split(string(data), "\r\n") {
		assert.LessOrEqual(t, len(line), 998, "line %d", i+1)
	}

	// the text survives the encoding
	parsed, err := mail.ReadMessage(bytes.NewReader(data))
	require.NoError(t, err)
	_, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	mixed := multipart.NewReader(parsed.Body, params["boundary"])
	alt, err := mixed.NextPart()
	require.NoError(t, err)
	_, altParams, err := mime.ParseMediaType(alt.Header.Get("Content-Type"))
	require.NoError(t, err)
	textPart, err := multipart.NewReader(alt, altParams["boundary"]).NextPart()
	require.NoError(t, err)
	b, err := io.ReadAll(textPart)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(long), strings.TrimSpace(string(b)))
}

func TestConsoleService(t *testing.T) {
	conf := core.NewTestConfig()
	var out bytes.Buffer
	svc := NewConsoleService(conf, newTemplates(t, conf), log.New(&out, "", 0))

	require.NoError(t, svc.Send(&core.EmailMessage{
		To:           []mail.Address{{Address: "jane@test.cd"}},
		Subject:      "Test email",
		TemplateName: "smtp_test",
	}))
	assert.Contains(t, out.String(), "To: <jane@test.cd>")
	assert.Contains(t, out.String(), "Subject: ["+conf.AppName+"] Test email")

	// nothing to send without recipients
	require.NoError(t, svc.Send(&core.EmailMessage{BodyStr: "hi"}))
	assert.Len(t, svc.SentMessages(), 1)

	err := svc.Send(&core.EmailMessage{To: []mail.Address{{Address: "jane@test.cd"}}, TemplateName: "missing"})
	assert.Error(t, err)
}

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	data string
}

func mockSendMail(t *testing.T, fail error) *[]sentMail {
	var (
		mu   sync.Mutex
		sent []sentMail
	)
	orig := sendMailFunc
	t.Cleanup(func() { sendMailFunc = orig })
	sendMailFunc = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, sentMail{addr: addr, auth: a, from: from, to: to, data: string(msg)})
		return fail
	}
	return &sent
}

func TestSMTPService_Send(t *testing.T) {
	conf := core.NewTestConfig()
	tmpls := newTemplates(t, conf)
	logger := testLogger(conf)

	configured := section.SMTPSettings{
		Host:      "smtp.test.cd",
		Port:      587,
		Username:  "mailer",
		Password:  "s3cret",
		FromEmail: "noreply@test.cd",
		FromName:  "Campus",
	}
	msg := func() *core.EmailMessage {
		return &core.EmailMessage{
			To:      []mail.Address{{Address: "jane@test.cd"}},
			Bcc:     []mail.Address{{Address: "audit@test.cd"}},
			Subject: "Hello",
			BodyStr: "Hi Jane",
		}
	}

	t.Run("not configured", func(t *testing.T) {
		sent := mockSendMail(t, nil)
		svc := NewSMTPService(conf, tmpls, staticSettings{settings: section.SMTPSettings{Port: 587}}, logger)
		assert.ErrorIs(t, svc.Send(msg()), ErrNotConfigured)
		assert.Empty(t, *sent)
	})

	t.Run("settings error", func(t *testing.T) {
		svc := NewSMTPService(conf, tmpls, staticSettings{err: errors.New("db down")}, logger)
		assert.ErrorContains(t, svc.Send(msg()), "db down")
	})

	t.Run("sent", func(t *testing.T) {
		sent := mockSendMail(t, nil)
		svc := NewSMTPService(conf, tmpls, staticSettings{settings: configured}, logger)
		require.NoError(t, svc.Send(msg()))

		require.Len(t, *sent, 1)
		got := (*sent)[0]
		assert.Equal(t, "smtp.test.cd:587", got.addr)
		assert.NotNil(t, got.auth)
		assert.Equal(t, "noreply@test.cd", got.from)
		assert.Equal(t, []string{"jane@test.cd", "audit@test.cd"}, got.to)
		assert.Contains(t, got.data, `From: "Campus" <noreply@test.cd>`)
		assert.NotContains(t, got.data, "audit@test.cd", "bcc stays out of the headers")
		assert.Contains(t, got.data, "Hi Jane")
	})

	t.Run("no auth without username", func(t *testing.T) {
		sent := mockSendMail(t, nil)
		settings := configured
		settings.Username = ""
		svc := NewSMTPService(conf, tmpls, staticSettings{settings: settings}, logger)
		require.NoError(t, svc.Send(msg()))
		require.Len(t, *sent, 1)
		assert.Nil(t, (*sent)[0].auth)
	})

	t.Run("delivery error", func(t *testing.T) {
		mockSendMail(t, errors.New("550 mailbox unavailable"))
		svc := NewSMTPService(conf, tmpls, staticSettings{settings: configured}, logger)
		err := svc.Send(msg())
		assert.ErrorContains(t, err, "sending mail through smtp.test.cd:587")
		assert.ErrorContains(t, err, "550 mailbox unavailable")
	})
}

// plainSMTPServer accepts one session, offers no STARTTLS and records the commands it receives.
func plainSMTPServer(t *testing.T) (port int, commands func() []string) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var (
		mu   sync.Mutex
		cmds []string
	)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 test ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			mu.Lock()
			cmds = append(cmds, line)
			mu.Unlock()

			switch verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); verb {
			case "EHLO":
				_ = tp.PrintfLine("250-test\r\n250 AUTH PLAIN")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("250 ok")
			}
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), cmds...)
	}
}

func TestSMTPService_requireTLS(t *testing.T) {
	conf := core.NewTestConfig()
	sent := mockSendMail(t, nil)

	port, commands := plainSMTPServer(t)
	settings := section.SMTPSettings{
		Host:      "127.0.0.1",
		Port:      port,
		Username:  "mailer",
		Password:  "s3cret",
		FromEmail: "noreply@test.cd",
		UseTLS:    true,
	}
	svc := NewSMTPService(conf, newTemplates(t, conf), staticSettings{settings: settings}, testLogger(conf))
	err := svc.Send(&core.EmailMessage{To: []mail.Address{{Address: "jane@test.cd"}}, Subject: "Hello", BodyStr: "Hi"})
	assert.ErrorIs(t, err, ErrStartTLSUnsupported)
	assert.Empty(t, *sent, "no fallback to opportunistic delivery")

	cmds := commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, "EHLO localhost", cmds[0])
	for _, cmd := range cmds {
		assert.False(t, strings.HasPrefix(cmd, "AUTH") || strings.HasPrefix(cmd, "MAIL"), cmd)
	}
}

func TestSendgridService_Send(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]interface{}
		status  = http.StatusAccepted
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotBody = nil
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	}))
	t.Cleanup(srv.Close)

	origHost := host
	host = srv.URL
	t.Cleanup(func() { host = origHost })

	conf := core.NewTestConfig()
	conf.Mail.SendgridAPIKey = "SG.key"
	svc := NewSendgridService(conf, newTemplates(t, conf), testLogger(conf))

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: "Jane", Address: "jane@test.cd"}},
		ReplyTo:      &mail.Address{Address: "visitor@test.cd"},
		Subject:      "Test email",
		TemplateName: "smtp_test",
	}
	require.NoError(t, svc.Send(msg))
	assert.Equal(t, "Bearer SG.key", gotAuth)

	personalization := gotBody["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "["+conf.AppName+"] Test email", personalization["subject"])
	assert.Equal(t, "jane@test.cd", personalization["to"].([]interface{})[0].(map[string]interface{})["email"])
	assert.Equal(t, "visitor@test.cd", gotBody["reply_to"].(map[string]interface{})["email"])

	status = http.StatusBadRequest
	err := svc.Send(&core.EmailMessage{To: msg.To, BodyStr: "hi"})
	assert.ErrorContains(t, err, "sendgrid status: 400")
}
