//go:build !windows && cgo

package services

import (
	"context"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

type adapterState int

const (
	stateUnloaded adapterState = iota
	stateReady
	stateFailed
)

// OCRService wraps the Tesseract engine. The engine is probed lazily on
// first use and the verdict is held for the life of the process; a missing
// tessdata install degrades every later call to Unavailable instead of
// crashing requests.
type OCRService struct {
	language string

	mu      sync.Mutex
	state   adapterState
	failure string

	clientFactory func() *gosseract.Client
}

// NewOCRService creates an OCR adapter for the given Tesseract language
// (e.g. "por", "eng"). No engine resources are acquired until the first
// Recognize call.
func NewOCRService(language string) *OCRService {
	return &OCRService{
		language:      language,
		clientFactory: gosseract.NewClient,
	}
}

// ensureReady probes Tesseract once. Clients are cheap; the expensive part
// is the language data lookup, which is what this validates.
func (s *OCRService) ensureReady() *AdapterError {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateReady:
		return nil
	case stateFailed:
		return Unavailable("%s", s.failure)
	}

	client := s.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(s.language); err != nil {
		s.state = stateFailed
		s.failure = "failed to set OCR language: " + err.Error()
		return Unavailable("%s", s.failure)
	}

	s.state = stateReady
	return nil
}

// Recognize runs OCR over an encoded image and returns the raw extracted
// text. Errors are always *AdapterError.
func (s *OCRService) Recognize(ctx context.Context, imageBytes []byte) (string, error) {
	if err := s.ensureReady(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", EngineFailure("ocr canceled: %v", err)
	}

	// One client per call: gosseract clients are not safe for concurrent
	// use, and page OCR fans out across goroutines.
	client := s.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(s.language); err != nil {
		return "", EngineFailure("failed to set OCR language: %v", err)
	}

	// PSM 6 = assume a single uniform block of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", EngineFailure("failed to set page segmentation mode: %v", err)
	}

	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return "", EngineFailure("failed to set image: %v", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", EngineFailure("failed to extract text: %v", err)
	}

	return text, nil
}
