package emailsvc

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
)

var nowFunc = time.Now // mockable

// buildMIME renders msg as a multipart message ready for SMTP delivery.
func buildMIME(from mail.Address, subject string, msg core.EmailMessage) ([]byte, error) {
	body := new(bytes.Buffer)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", from.String())
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "Cc: %s\r\n", joinAddresses(msg.Cc))
	}
	if msg.ReplyTo != nil {
		_, _ = fmt.Fprintf(body, "Reply-To: %s\r\n", msg.ReplyTo.String())
	}
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", nowFunc().Format(time.RFC1123Z))
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")

	altBody := new(bytes.Buffer)
	altW := multipart.NewWriter(altBody)
	if err := writeAlternative(altW, msg); err != nil {
		return nil, err
	}

	if !msg.HasAttachments() {
		_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())
		body.Write(altBody.Bytes())
		return body.Bytes(), nil
	}

	mixedW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixedW.Boundary())
	w, err := mixedW.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + altW.Boundary()}})
	if err != nil {
		return nil, errors.Wrap(err, "creating multipart/alternative part")
	}
	if _, err := w.Write(altBody.Bytes()); err != nil {
		return nil, errors.Wrap(err, "writing multipart/alternative part")
	}
	for _, at := range msg.Attachments {
		w, err = mixedW.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": at.Filename})},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "creating %s part", at.ContentType)
		}
		writeWrapped(w, at.Content.String(), base64LineLen)
	}
	if err := mixedW.Close(); err != nil {
		return nil, errors.Wrap(err, "closing multipart/mixed")
	}
	return body.Bytes(), nil
}

func writeAlternative(altW *multipart.Writer, msg core.EmailMessage) error {
	if err := writeTextPart(altW, "text/plain", msg.TextContent); err != nil {
		return err
	}
	if msg.HTMLContent != "" {
		if err := writeTextPart(altW, "text/html", msg.HTMLContent); err != nil {
			return err
		}
	}
	return errors.Wrap(altW.Close(), "closing multipart/alternative")
}

// writeTextPart writes content quoted-printable encoded, which keeps lines within the SMTP limit
// whatever the visitor typed.
func writeTextPart(mw *multipart.Writer, mediaType, content string) error {
	w, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mediaType + "; charset=utf-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return errors.Wrapf(err, "creating %s part", mediaType)
	}
	qp := quotedprintable.NewWriter(w)
	if _, err := io.WriteString(qp, content+"\r\n"); err != nil {
		return errors.Wrapf(err, "writing %s part", mediaType)
	}
	return errors.Wrapf(qp.Close(), "closing %s part", mediaType)
}

const base64LineLen = 76

// writeWrapped writes s in CRLF terminated lines of at most width bytes.
func writeWrapped(w io.Writer, s string, width int) {
	for len(s) > width {
		_, _ = io.WriteString(w, s[:width]+"\r\n")
		s = s[width:]
	}
	_, _ = io.WriteString(w, s+"\r\n")
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

// prepare renders msg and tells whether there is anything to send.
func prepare(tmpls *core.EmailTemplates, msg *core.EmailMessage) (bool, error) {
	if err := tmpls.Render(msg); err != nil {
		return false, errors.Wrap(err, "rendering email")
	}
	return msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()), nil
}

func senderOf(msg core.EmailMessage, fallback mail.Address) mail.Address {
	if msg.From != nil {
		return *msg.From
	}
	return fallback
}
