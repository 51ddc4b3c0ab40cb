package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CaptionService generates natural-language descriptions of images by
// calling a BLIP-style inference endpoint over HTTP. The endpoint accepts
// the raw image in the request body and answers {"caption": "..."}.
//
// An empty endpoint URL means captioning is not deployed; every call then
// reports Unavailable and the pipeline substitutes its degrade message.
type CaptionService struct {
	endpoint   string
	httpClient *http.Client
}

// NewCaptionService creates a captioning adapter. endpoint may be empty.
func NewCaptionService(endpoint string, timeout time.Duration) *CaptionService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CaptionService{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type captionResponse struct {
	Caption string `json:"caption"`
	Error   string `json:"error,omitempty"`
}

// Describe returns a short description of the image content. Errors are
// always *AdapterError.
func (s *CaptionService) Describe(ctx context.Context, imageBytes []byte, contentType string) (string, error) {
	if s.endpoint == "" {
		return "", Unavailable("caption endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(imageBytes))
	if err != nil {
		return "", EngineFailure("failed to build caption request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", Unavailable("caption service unreachable: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", EngineFailure("failed to read caption response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", EngineFailure("caption service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed captionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", EngineFailure("invalid caption response: %v", err)
	}
	if parsed.Error != "" {
		return "", EngineFailure("%s", parsed.Error)
	}

	caption := strings.TrimSpace(parsed.Caption)
	if caption == "" {
		return "", EngineFailure("caption service returned an empty caption")
	}

	return caption, nil
}

// Healthy probes the endpoint so startup logs can say whether descriptions
// will be served.
func (s *CaptionService) Healthy(ctx context.Context) error {
	if s.endpoint == "" {
		return fmt.Errorf("caption endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
