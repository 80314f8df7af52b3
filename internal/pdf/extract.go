// Package pdf reads text out of uploaded PDF documents and renders quizzes
// as printable PDF files.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxBytes is the upload limit for source documents.
const DefaultMaxBytes = 15 << 20

var (
	// ErrTooLarge is returned when a document exceeds the size limit.
	ErrTooLarge = errors.New("document too large")
	// ErrUnsupportedType is returned when the upload is not a PDF.
	ErrUnsupportedType = errors.New("only PDF documents are supported")
	// ErrNoText is returned when a PDF has no extractable text (e.g. a scan).
	ErrNoText = errors.New("document contains no extractable text")
)

var magic = []byte("%PDF-")

// ExtractText reads at most maxBytes from r and returns the plain text of
// every page.  A non-positive maxBytes uses DefaultMaxBytes.
func ExtractText(r io.Reader, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", ErrTooLarge
	}
	if !bytes.HasPrefix(data, magic) {
		return "", ErrUnsupportedType
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	var text strings.Builder
	if _, err := io.Copy(&text, plain); err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", ErrNoText
	}
	return out, nil
}
