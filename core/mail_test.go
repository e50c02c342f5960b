package core

import (
	"net/mail"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailTemplates_Render(t *testing.T) {
	conf := NewTestConfig()
	tmpls, err := ParseEmailTemplates(conf)
	require.NoError(t, err)
	for _, name := range []string{"password_reset", "enquiry_notification", "smtp_test"} {
		assert.True(t, tmpls.Has(name), name)
	}

	msg := &EmailMessage{
		To:           []mail.Address{{Address: "jane@test.cd"}},
		TemplateName: "password_reset",
		TemplateData: map[string]string{"Name": "Jane", "UID": "MQ", "Token": "abc-def"},
	}
	require.NoError(t, tmpls.Render(msg))
	assert.Contains(t, msg.TextContent, "Hello Jane")
	assert.Contains(t, msg.TextContent, conf.FrontendBaseURL+"/admin/password-reset?uid=MQ&token=abc-def")
	assert.NotEmpty(t, msg.HTMLContent)

	t.Run("body string wins over the text template", func(t *testing.T) {
		m := &EmailMessage{BodyStr: "plain", TemplateName: "smtp_test"}
		require.NoError(t, tmpls.Render(m))
		assert.Equal(t, "plain", m.TextContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		assert.EqualError(t, tmpls.Render(&EmailMessage{TemplateName: "nope"}), `unknown email template "nope"`)
	})

	t.Run("strict mode rejects missing keys", func(t *testing.T) {
		m := &EmailMessage{TemplateName: "password_reset", TemplateData: map[string]string{}}
		assert.Error(t, tmpls.Render(m))
	})
}

func TestParseEmailTemplates_fs(t *testing.T) {
	fsys := fstest.MapFS{
		"mail/_base.txt":    {Data: []byte(`{{template "content" .}}-- {{.AppName}}`)},
		"mail/hello.txt":    {Data: []byte(`{{define "content"}}Hi {{.Data}}{{end}}`)},
		"mail/notes.md":     {Data: []byte("ignored")},
		"mail/_partial.txt": {Data: []byte("ignored")},
	}
	conf := NewTestConfig()
	tmpls, err := parseEmailTemplates(fsys, "mail", conf, true)
	require.NoError(t, err)
	assert.True(t, tmpls.Has("hello"))
	assert.False(t, tmpls.Has("notes"))
	assert.False(t, tmpls.Has("_partial"))

	m := &EmailMessage{TemplateName: "hello", TemplateData: "Jane"}
	require.NoError(t, tmpls.Render(m))
	assert.Equal(t, "Hi Jane-- "+conf.AppName, strings.TrimSpace(m.TextContent))

	_, err = parseEmailTemplates(fsys, "missing", conf, true)
	assert.Error(t, err)
}

func TestEmailMessage(t *testing.T) {
	m := &EmailMessage{
		To:  []mail.Address{{Address: "a@test.cd"}},
		Cc:  []mail.Address{{Address: "b@test.cd"}},
		Bcc: []mail.Address{{Address: "c@test.cd"}},
	}
	assert.Equal(t, []string{"a@test.cd", "b@test.cd", "c@test.cd"}, m.Recipients())
	assert.False(t, m.HasContent())

	require.NoError(t, m.Attach(strings.NewReader("hello"), "hello.txt"))
	require.True(t, m.HasAttachments())
	assert.Equal(t, "aGVsbG8=", m.Attachments[0].Content.String())
	assert.Equal(t, "text/plain; charset=utf-8", m.Attachments[0].ContentType)
}
