package tts

import "context"

// AudioChunk is synthesized speech ready to broadcast
type AudioChunk struct {
	Data       []byte    // WAV container, 16-bit PCM
	Samples    []float32 // Same audio, normalized
	SampleRate int       // Sample rate in Hz
	Channels   int       // Number of channels (1 for mono)
	Text       string    // Text that was spoken
	Language   string    // ISO 639-1 language code
}

// Synthesizer converts finalized, translated lines into speech
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*AudioChunk, error)
}
