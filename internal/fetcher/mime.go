package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"

	"receipt-extractor-go/internal/extractor"
)

// DefaultMaxAttachmentBytes caps how much of one attachment is read
const DefaultMaxAttachmentBytes = 10 << 20

var errAttachmentTooLarge = errors.New("attachment exceeds size limit")

// ParseOptions controls how attachments are turned into text
type ParseOptions struct {
	MaxAttachmentBytes int64
	Images             ImageRecognizer
}

// ParseMessage reads an RFC 5322 message into extractor input. The plain
// text part is preferred, an HTML-only body is stripped to text, and text
// recovered from PDF or image attachments is appended behind the
// attachment marker. The id is the Message-Id header; fetchers replace it
// with the provider id when they have one.
func ParseMessage(ctx context.Context, r io.Reader, opts ParseOptions) (extractor.RawEmail, error) {
	if opts.MaxAttachmentBytes <= 0 {
		opts.MaxAttachmentBytes = DefaultMaxAttachmentBytes
	}

	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return extractor.RawEmail{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	email := extractor.RawEmail{}
	if id, err := mr.Header.MessageID(); err == nil {
		email.ID = id
	}
	if subject, err := mr.Header.Subject(); err == nil || message.IsUnknownCharset(err) {
		email.Subject = subject
	}
	if from, err := mr.Header.Text("From"); err == nil || message.IsUnknownCharset(err) {
		email.Sender = strings.TrimSpace(from)
	}
	if date, err := mr.Header.Date(); err == nil {
		email.Date = date
	}

	var plain, htmlBody string
	var attachments []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return extractor.RawEmail{}, fmt.Errorf("failed to read part: %w", err)
		}

		contentType, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
		if contentType == "" {
			contentType = "text/plain"
		}
		filename := ""
		inline := true
		if h, ok := p.Header.(*mail.AttachmentHeader); ok {
			filename, _ = h.Filename()
			inline = false
		}

		switch {
		case inline && contentType == "text/plain" && plain == "":
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return extractor.RawEmail{}, fmt.Errorf("failed to read text part: %w", err)
			}
			plain = string(body)
		case inline && contentType == "text/html" && htmlBody == "":
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return extractor.RawEmail{}, fmt.Errorf("failed to read html part: %w", err)
			}
			htmlBody = string(body)
		default:
			text, err := attachmentText(ctx, contentType, filename, p.Body, opts)
			if err != nil {
				logrus.Warnf("Skipping attachment %q (%s): %v", filename, contentType, err)
				continue
			}
			attachments = append(attachments, text)
		}
	}

	body := strings.TrimSpace(plain)
	if body == "" && htmlBody != "" {
		body = htmlToText(htmlBody)
	}
	email.BodyText = extractor.CombineBody(body, attachments...)
	email.ContentHash = extractor.ContentHash(email.BodyText)
	return email, nil
}

func attachmentText(ctx context.Context, contentType, filename string, body io.Reader, opts ParseOptions) (string, error) {
	isPDF := contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(filename), ".pdf")
	isImage := strings.HasPrefix(contentType, "image/")
	isText := contentType == "text/plain"
	if !isPDF && !isImage && !isText {
		return "", nil
	}
	if isImage && opts.Images == nil {
		return "", nil
	}

	data, err := io.ReadAll(io.LimitReader(body, opts.MaxAttachmentBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > opts.MaxAttachmentBytes {
		return "", errAttachmentTooLarge
	}

	switch {
	case isPDF:
		return pdfText(data)
	case isImage:
		return opts.Images.RecognizeText(ctx, filename, data)
	default:
		return string(data), nil
	}
}
