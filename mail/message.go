package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"

	"github.com/gaurav-prasanna/newsfold/core"
)

// ParseMessage reads an RFC 5322 message and extracts the parts the
// archive needs: headers, the first text/html and text/plain bodies, and
// every attachment or inline image part.
func ParseMessage(r io.Reader) (*core.Message, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	msg := &core.Message{}
	readHeader(msg, &mr.Header)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			// Keep what was parsed so far; a truncated tail should not
			// lose the body.
			break
		}

		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case contentType == "text/html":
				if msg.HTMLBody == "" {
					msg.HTMLBody = string(body)
				}
			case contentType == "text/plain":
				if msg.TextBody == "" {
					msg.TextBody = string(body)
				}
			case strings.HasPrefix(contentType, "image/"):
				msg.Attachments = append(msg.Attachments, core.MessagePart{
					ContentID: contentID(h.Get("Content-Id")),
					MIMEType:  contentType,
					Data:      body,
				})
			}

		case *gomail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			msg.Attachments = append(msg.Attachments, core.MessagePart{
				Filename:  filename,
				ContentID: contentID(h.Get("Content-Id")),
				MIMEType:  contentType,
				Data:      body,
			})
		}
	}

	return msg, nil
}

// ParseBytes is ParseMessage over an in-memory message.
func ParseBytes(raw []byte) (*core.Message, error) {
	return ParseMessage(bytes.NewReader(raw))
}

func readHeader(msg *core.Message, h *gomail.Header) {
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = h.Get("Subject")
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		msg.Date = date
	} else {
		msg.Date = time.Now()
	}
	if id, err := h.MessageID(); err == nil {
		msg.ID = id
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
}

func contentID(v string) string {
	return strings.Trim(strings.TrimSpace(v), "<>")
}
