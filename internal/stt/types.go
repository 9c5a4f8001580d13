package stt

import (
	"context"
	"time"
)

// Transcriber is a batch speech engine: one call per segment of normalized mono samples.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// TranscriptionResult represents a streaming recognizer result
type TranscriptionResult struct {
	// Text is the transcribed text
	Text string

	// IsFinal indicates the recognizer will not revise this fragment again
	IsFinal bool

	// SpeechFinal indicates the speaker paused and the utterance ended
	SpeechFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64

	// ReceivedAt is when the result arrived
	ReceivedAt time.Time
}

// StreamRecognizer is a continuous speech engine fed with frames as they arrive
type StreamRecognizer interface {
	// Start opens the recognition session
	Start(ctx context.Context) error

	// SendAudio streams normalized samples to the recognizer
	SendAudio(samples []float32) error

	// Results delivers recognizer output in arrival order
	Results() <-chan *TranscriptionResult

	// Close ends the session and releases resources
	Close() error
}
