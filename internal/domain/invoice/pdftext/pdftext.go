// Package pdftext is the external text-extraction collaborator: it turns a
// PDF document into the raw line sequence the sanitizer consumes.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrNoText indicates a PDF from which no text could be extracted, typically
// a scanned document.
var ErrNoText = errors.New("no text extracted from PDF")

// Extract returns the plain-text lines of a PDF file.
func Extract(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("read PDF text: %w", err)
	}

	text := buf.String()
	if text == "" {
		return nil, ErrNoText
	}

	// Replace any invalid UTF-8 sequences left by font decoding so the
	// downstream regex matching never fails.
	if !utf8.ValidString(text) {
		var sb strings.Builder
		sb.Grow(len(text))
		for _, r := range text {
			sb.WriteRune(r)
		}
		text = sb.String()
	}

	return strings.Split(text, "\n"), nil
}
