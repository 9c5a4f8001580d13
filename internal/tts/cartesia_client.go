package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/audio"
	"github.com/lexiqai/live-transcriber/internal/config"
)

const (
	cartesiaURL        = "https://api.cartesia.ai/tts/bytes"
	cartesiaVersion    = "2024-06-10"
	cartesiaSampleRate = 24000
)

// ensure this satisfies the interface
var _ Synthesizer = (*CartesiaClient)(nil)

// CartesiaClient implements Synthesizer using Cartesia's TTS API
type CartesiaClient struct {
	apiKey     string
	apiURL     string
	voiceID    string
	modelID    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// CartesiaRequest represents the request payload for Cartesia TTS API
type CartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoice        `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
	Language     string               `json:"language,omitempty"`
}

// NewCartesiaClient creates a new Cartesia TTS client
func NewCartesiaClient(cfg *config.Config, logger zerolog.Logger) *CartesiaClient {
	return &CartesiaClient{
		apiKey:     cfg.CartesiaAPIKey,
		apiURL:     cartesiaURL,
		voiceID:    cfg.CartesiaVoiceID,
		modelID:    cfg.CartesiaModelID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Synthesize converts text to speech in the given language
func (c *CartesiaClient) Synthesize(ctx context.Context, text, language string) (*AudioChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	reqBody := CartesiaRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: c.voiceID},
		OutputFormat: cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: cartesiaSampleRate,
		},
		Language: language,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cartesia API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cartesia returned empty audio")
	}
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}

	samples, err := audio.PCM16ToFloat32(pcm)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	c.logger.Debug().
		Int("bytes", len(pcm)).
		Str("language", language).
		Msg("Synthesized speech")

	return &AudioChunk{
		Data:       audio.EncodeWAV(samples, cartesiaSampleRate),
		Samples:    samples,
		SampleRate: cartesiaSampleRate,
		Channels:   1,
		Text:       text,
		Language:   language,
	}, nil
}
