package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/microcosm-cc/bluemonday"
)

// ImageRecognizer turns an image attachment into text, typically through
// an OCR service. It is optional.
type ImageRecognizer interface {
	RecognizeText(ctx context.Context, filename string, data []byte) (string, error)
}

var (
	stripPolicy = bluemonday.StrictPolicy()

	blockTags = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/tr|/li|/h[1-6]|/table)\b[^>]*>`)
	cellTags  = regexp.MustCompile(`(?i)<\s*/t[dh]\s*>`)
	blankRuns = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
	spaceRuns = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// htmlToText strips markup while keeping row and paragraph breaks so the
// line-based extractors still see one label per line
func htmlToText(s string) string {
	s = blockTags.ReplaceAllString(s, "\n$0")
	s = cellTags.ReplaceAllString(s, " $0")
	s = html.UnescapeString(stripPolicy.Sanitize(s))

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// pdfText reads the text layer of a PDF, row by row. The pdf library panics
// on some malformed files, so the panic is turned into an error.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var words []string
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}

	text = strings.TrimSpace(strings.Join(pages, "\n\n"))
	if text != "" {
		return text, nil
	}

	// no row layout, fall back to the document's plain text stream
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	data, err = io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
