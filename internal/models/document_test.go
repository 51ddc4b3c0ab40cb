package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaKindForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		kind        MediaKind
		ok          bool
	}{
		{"image/jpeg", MediaKindImage, true},
		{"image/jpg", MediaKindImage, true},
		{"image/png", MediaKindImage, true},
		{"IMAGE/PNG", MediaKindImage, true},
		{"application/pdf", MediaKindPDF, true},
		{"image/gif", "", false},
		{"text/plain", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		kind, ok := MediaKindForContentType(tt.contentType)
		assert.Equal(t, tt.ok, ok, "content type %q", tt.contentType)
		assert.Equal(t, tt.kind, kind, "content type %q", tt.contentType)
	}
}

func TestParseProcessMode(t *testing.T) {
	tests := []struct {
		in   string
		mode ProcessMode
		ok   bool
	}{
		{"", ModeAll, true},
		{"text", ModeText, true},
		{"description", ModeDescription, true},
		{"audio", ModeAudio, true},
		{"all", ModeAll, true},
		{"  Text ", ModeText, true},
		{"ocr", "", false},
		{"everything", "", false},
	}

	for _, tt := range tests {
		mode, ok := ParseProcessMode(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.mode, mode, "input %q", tt.in)
	}
}

func TestProcessModeStages(t *testing.T) {
	assert.True(t, ModeText.WantsText())
	assert.False(t, ModeText.WantsDescription())
	assert.False(t, ModeText.WantsAudio())

	assert.False(t, ModeDescription.WantsText())
	assert.True(t, ModeDescription.WantsDescription())
	assert.False(t, ModeDescription.WantsAudio())

	// Audio needs text candidates, so it runs both extraction stages.
	assert.True(t, ModeAudio.WantsText())
	assert.True(t, ModeAudio.WantsDescription())
	assert.True(t, ModeAudio.WantsAudio())

	assert.True(t, ModeAll.WantsText())
	assert.True(t, ModeAll.WantsDescription())
	assert.True(t, ModeAll.WantsAudio())
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t"))
	assert.Equal(t, 2, CountWords("Bom dia"))
	assert.Equal(t, 2, CountWords("  Bom \n dia  "))
	assert.Equal(t, 5, CountWords("um\ndois três\tquatro cinco"))
}
