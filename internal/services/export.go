package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for export format tags other than
// txt and srt.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportFormatter turns extracted text into a downloadable document.
// Stateless; callers persist the bytes themselves.
type ExportFormatter struct{}

// NewExportFormatter creates the export formatter.
func NewExportFormatter() *ExportFormatter {
	return &ExportFormatter{}
}

// Format renders content in the requested format and returns the bytes
// together with their content type. Supported formats: "txt" (verbatim
// UTF-8) and "srt" (a single cue over a fixed placeholder interval).
func (f *ExportFormatter) Format(content, format string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case "txt":
		return []byte(content), "text/plain; charset=utf-8", nil
	case "srt":
		cue := fmt.Sprintf("1\n00:00:00,000 --> 00:00:10,000\n%s\n", content)
		return []byte(cue), "application/x-subrip", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
