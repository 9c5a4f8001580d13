package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ensure this satisfies the interface
var _ Transcriber = (*HTTPTranscriber)(nil)

// HTTPTranscriber posts segments as a JSON array of float samples to a
// self-hosted Whisper server.
type HTTPTranscriber struct {
	url        string
	httpClient *http.Client
}

type httpSegment struct {
	Text string `json:"text"`
}

type httpTranscription struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Segments []httpSegment `json:"segments"`
}

// NewHTTPTranscriber creates an HTTP transcriber for url
func NewHTTPTranscriber(url string) (*HTTPTranscriber, error) {
	if url == "" {
		return nil, fmt.Errorf("invalid url for HTTPTranscriber %q", url)
	}
	return &HTTPTranscriber{
		url:        url,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Transcribe implements Transcriber
func (s *HTTPTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	payload, err := json.Marshal(samples)
	if err != nil {
		return "", fmt.Errorf("failed to marshal samples: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sample-Rate", strconv.Itoa(sampleRate))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("transcriber returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result httpTranscription
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode transcription: %w", err)
	}
	if result.Text != "" || len(result.Segments) == 0 {
		return result.Text, nil
	}
	parts := make([]string, 0, len(result.Segments))
	for _, seg := range result.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
