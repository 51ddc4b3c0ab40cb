package models

import (
	"strings"
	"time"
)

// MediaKind classifies an uploaded document
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindPDF   MediaKind = "pdf"
)

// MediaKindForContentType maps an upload content type to its media kind.
// Returns false for content types the service does not accept.
func MediaKindForContentType(contentType string) (MediaKind, bool) {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png":
		return MediaKindImage, true
	case "application/pdf":
		return MediaKindPDF, true
	default:
		return "", false
	}
}

// ProcessMode selects which pipeline stages run for a request
type ProcessMode string

const (
	ModeText        ProcessMode = "text"
	ModeDescription ProcessMode = "description"
	ModeAudio       ProcessMode = "audio"
	ModeAll         ProcessMode = "all"
)

// ParseProcessMode normalizes a process_type query value. Empty defaults to
// ModeAll; unknown values are rejected.
func ParseProcessMode(s string) (ProcessMode, bool) {
	switch ProcessMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ModeAll, true
	case ModeText:
		return ModeText, true
	case ModeDescription:
		return ModeDescription, true
	case ModeAudio:
		return ModeAudio, true
	case ModeAll:
		return ModeAll, true
	default:
		return "", false
	}
}

// WantsText reports whether the mode runs text extraction.
func (m ProcessMode) WantsText() bool {
	return m == ModeText || m == ModeAudio || m == ModeAll
}

// WantsDescription reports whether the mode runs image captioning.
func (m ProcessMode) WantsDescription() bool {
	return m == ModeDescription || m == ModeAudio || m == ModeAll
}

// WantsAudio reports whether the mode runs speech synthesis.
func (m ProcessMode) WantsAudio() bool {
	return m == ModeAudio || m == ModeAll
}

// Document is the registry record for an uploaded file. The raw bytes live in
// the object store under StorageKey; this row only carries metadata.
type Document struct {
	ID          string    `json:"file_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	MediaKind   MediaKind `json:"media_kind"`
	SizeBytes   int64     `json:"size"`
	StorageKey  string    `json:"-"`
	AudioKey    *string   `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// CreateDocumentRequest carries the fields needed to register an upload.
type CreateDocumentRequest struct {
	ID          string
	Filename    string
	ContentType string
	MediaKind   MediaKind
	SizeBytes   int64
	StorageKey  string
}

// ExtractionResult is the per-request pipeline output. Fields are optional:
// a mode that skips a stage leaves the field nil, and WordCount is present
// iff Text is present.
type ExtractionResult struct {
	Text        *string `json:"text,omitempty"`
	WordCount   *int    `json:"word_count,omitempty"`
	Description *string `json:"description,omitempty"`
	AudioURL    *string `json:"audio_url,omitempty"`
}

// CountWords returns the number of whitespace-delimited tokens in s.
// An empty or blank string counts zero words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
