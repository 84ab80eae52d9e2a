package mail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"github.com/gaurav-prasanna/subdigest/core"
)

// Compose builds the RFC 5322 message for msg. HTML with a text alternative
// becomes multipart/alternative. Bodies are quoted-printable since the digest
// is a single long line.
func Compose(msg core.Message, domain string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}

	header("From", msg.From)
	header("To", msg.To)
	if msg.Cc != "" {
		header("Cc", msg.Cc)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	header("MIME-Version", "1.0")

	switch {
	case msg.IsHTML && msg.TextBody != "":
		mw := multipart.NewWriter(&buf)
		header("Content-Type", `multipart/alternative; boundary="`+mw.Boundary()+`"`)
		buf.WriteString("\r\n")
		if err := writePart(mw, "text/plain", msg.TextBody); err != nil {
			return nil, err
		}
		if err := writePart(mw, "text/html", msg.HTMLBody); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("closing multipart body: %w", err)
		}
	case msg.IsHTML:
		if err := writeSingle(&buf, header, "text/html", msg.HTMLBody); err != nil {
			return nil, err
		}
	default:
		body := msg.TextBody
		if body == "" {
			body = msg.HTMLBody
		}
		if err := writeSingle(&buf, header, "text/plain", body); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeSingle(buf *bytes.Buffer, header func(k, v string), contentType, body string) error {
	header("Content-Type", contentType+`; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")
	return writeQP(buf, body)
}

func writePart(mw *multipart.Writer, contentType, body string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType+`; charset="UTF-8"`)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	w, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	return writeQP(w, body)
}

func writeQP(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}
	return nil
}
