package stt

import (
	"context"
	"fmt"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

// ensure this satisfies the interface
var _ Transcriber = StubTranscriber{}

// StubTranscriber reports segment lengths instead of recognizing speech.
// Useful to exercise capture and segmentation without an engine.
type StubTranscriber struct{}

// Transcribe implements Transcriber
func (StubTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d := audio.SamplesDuration(len(samples), sampleRate)
	return fmt.Sprintf("[speech %.1fs]", d.Seconds()), nil
}
