package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	ttsAPIURL = "https://translate.google.com/translate_tts"

	// ttsChunkRunes is the per-request text limit of the translate endpoint.
	ttsChunkRunes = 200

	// ttsMaxInputRunes caps the total synthesized text; longer inputs are
	// truncated with an ellipsis.
	ttsMaxInputRunes = 5000
)

// SpeechService synthesizes MP3 audio from text through the Google
// Translate TTS endpoint. Long texts are split into chunks the endpoint
// accepts and the MP3 frames are concatenated in order.
type SpeechService struct {
	language   string
	httpClient *http.Client
}

// NewSpeechService creates a speech synthesis adapter for the given BCP-47
// language tag (e.g. "pt-BR").
func NewSpeechService(language string, timeout time.Duration) *SpeechService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SpeechService{
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize converts text to MP3 bytes. Errors are always *AdapterError.
func (s *SpeechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, EngineFailure("no text to synthesize")
	}
	text = truncateRunes(text, ttsMaxInputRunes)

	var audio bytes.Buffer
	for _, chunk := range splitSpeechChunks(text, ttsChunkRunes) {
		data, err := s.fetchChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}

	return audio.Bytes(), nil
}

func (s *SpeechService) fetchChunk(ctx context.Context, chunk string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", s.language)
	params.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ttsAPIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, EngineFailure("failed to build tts request: %v", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, Unavailable("speech service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, EngineFailure("speech service returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, EngineFailure("failed to read audio: %v", err)
	}
	if len(data) == 0 {
		return nil, EngineFailure("speech service returned no audio")
	}

	return data, nil
}

// truncateRunes caps s at limit runes, appending an ellipsis when cut.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// splitSpeechChunks breaks text into pieces of at most limit runes,
// preferring whitespace boundaries so words are not cut mid-syllable.
func splitSpeechChunks(text string, limit int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)

		// A single word longer than the limit is cut hard.
		for wordLen > limit {
			flush()
			runes := []rune(word)
			chunks = append(chunks, string(runes[:limit]))
			word = string(runes[limit:])
			wordLen = utf8.RuneCountInString(word)
		}

		sep := 0
		if currentLen > 0 {
			sep = 1
		}
		if currentLen+sep+wordLen > limit {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}
	flush()

	return chunks
}

// Voice reports the configured language tag, for logs.
func (s *SpeechService) Voice() string {
	return fmt.Sprintf("google-translate/%s", s.language)
}
