package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/observability"
)

// CaptionPoller polls a text extraction service (an OCR sidecar watching the
// caption area of a call window) and hands every non-empty fragment on.
type CaptionPoller struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

type captionResponse struct {
	Text string `json:"text"`
}

// NewCaptionPoller creates a poller for url
func NewCaptionPoller(url string, interval time.Duration, logger zerolog.Logger) *CaptionPoller {
	return &CaptionPoller{
		url:        url,
		interval:   interval,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Run polls until ctx is done. Failed polls are logged and skipped.
func (p *CaptionPoller) Run(ctx context.Context, emit func(string)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		text, err := p.Fetch(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			observability.RecordError("fetch", "caption")
			p.logger.Warn().Err(err).Msg("Caption poll failed")
		case text != "":
			emit(text)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Fetch retrieves the currently visible caption text. JSON responses carry it
// in a "text" field; anything else is taken as plain text.
func (p *CaptionPoller) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to poll captions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption service returned status %d", resp.StatusCode)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var cr captionResponse
		if err := json.Unmarshal(body, &cr); err != nil {
			return "", fmt.Errorf("failed to decode captions: %w", err)
		}
		return strings.TrimSpace(cr.Text), nil
	}
	return strings.TrimSpace(string(body)), nil
}
