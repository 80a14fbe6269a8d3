// Package extract converts uploaded contract files to plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"clausecheck/internal/logging"
)

var (
	// ErrInvalidInput is returned for a missing filename or empty upload.
	ErrInvalidInput = errors.New("invalid input: a non-empty file with a name is required")
	// ErrUnsupportedType is returned for file extensions with no extractor.
	ErrUnsupportedType = fmt.Errorf("unsupported file type; supported types: %s", strings.Join(SupportedExtensions(), ", "))
	// ErrRead wraps any failure while extracting text from a supported file.
	ErrRead = errors.New("failed to read document")
)

// SupportedType enumerates the document formats the converter reads.
type SupportedType int

const (
	TypeUnknown SupportedType = iota
	TypePDF
	TypeDOCX
)

var extensions = map[SupportedType]string{
	TypePDF:  "pdf",
	TypeDOCX: "docx",
}

// String returns the canonical extension, without the dot.
func (t SupportedType) String() string {
	if ext, ok := extensions[t]; ok {
		return ext
	}
	return "unknown"
}

// FromExtension maps a filename or extension (".PDF", "docx", "a/b.pdf") to a type.
func FromExtension(name string) SupportedType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(name, "."))
	}
	for t, e := range extensions {
		if e == ext {
			return t
		}
	}
	return TypeUnknown
}

// SupportedExtensions lists the accepted extensions in a stable order.
func SupportedExtensions() []string {
	return []string{TypePDF.String(), TypeDOCX.String()}
}

// Converter turns document bytes into text. The zero value is ready to use.
type Converter struct{}

// NewConverter returns a converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Extract returns the plain text of data, dispatching on filename's extension.
func (c *Converter) Extract(filename string, data []byte) (string, error) {
	timer := logging.StartTimer(logging.CategoryExtract, "Extract")
	defer timer.Stop()

	if strings.TrimSpace(filename) == "" || len(data) == 0 {
		return "", ErrInvalidInput
	}

	var (
		text string
		err  error
	)
	switch FromExtension(filename) {
	case TypePDF:
		text, err = extractPDF(bytes.NewReader(data), int64(len(data)))
	case TypeDOCX:
		text, err = extractDOCX(bytes.NewReader(data), int64(len(data)))
	default:
		return "", fmt.Errorf("%w (got %q)", ErrUnsupportedType, filepath.Ext(filename))
	}
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrRead, filename, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w %s: no text content", ErrRead, filename)
	}

	logging.Extract("Extracted %d chars from %s", len(text), filename)
	return text, nil
}
