//go:build windows || !cgo

package services

import "context"

// OCRService handles optical character recognition (stub for Windows)
type OCRService struct{}

// NewOCRService creates an OCR adapter (not available on Windows)
func NewOCRService(language string) *OCRService {
	return &OCRService{}
}

// Recognize always reports the engine as unavailable on Windows.
func (s *OCRService) Recognize(ctx context.Context, imageBytes []byte) (string, error) {
	return "", Unavailable("OCR is not available on Windows - run in Docker container")
}
