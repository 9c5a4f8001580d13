package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

// ensure this satisfies the interface
var _ Transcriber = (*OpenAITranscriber)(nil)

// OpenAITranscriber sends segments to the Whisper transcription endpoint as WAV
type OpenAITranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAITranscriber creates a Whisper transcriber on an OpenAI or Azure OpenAI client
func NewOpenAITranscriber(client *openai.Client, model, language string) *OpenAITranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAITranscriber{client: client, model: model, language: language}
}

// Transcribe implements Transcriber
func (t *OpenAITranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       t.model,
		FilePath:    "segment.wav",
		Reader:      bytes.NewReader(audio.EncodeWAV(samples, sampleRate)),
		Language:    t.language,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription failed: %w", err)
	}
	return resp.Text, nil
}
