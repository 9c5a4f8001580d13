package stt

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/resilience"
	"github.com/lexiqai/live-transcriber/internal/segment"
)

// ErrCircuitOpen is reported when the speech engine breaker rejects a call
var ErrCircuitOpen = resilience.ErrCircuitOpen

// Invoker submits finalized segments to a speech engine. Failures are logged
// and the segment is dropped; nothing is retried.
type Invoker struct {
	engine     Transcriber
	sampleRate int
	timeout    time.Duration
	breaker    *resilience.CircuitBreaker
	logger     zerolog.Logger
}

// NewInvoker creates an invoker. A zero timeout leaves the call bounded only by ctx.
// breaker may be nil.
func NewInvoker(engine Transcriber, sampleRate int, timeout time.Duration, breaker *resilience.CircuitBreaker, logger zerolog.Logger) *Invoker {
	return &Invoker{
		engine:     engine,
		sampleRate: sampleRate,
		timeout:    timeout,
		breaker:    breaker,
		logger:     logger,
	}
}

// Transcribe returns the trimmed text for seg. ok is false when the call failed
// and the segment was dropped. Empty text with ok=true means the engine heard nothing.
func (i *Invoker) Transcribe(ctx context.Context, seg segment.Segment) (text string, ok bool) {
	if len(seg.Samples) == 0 {
		return "", false
	}

	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	call := func() error {
		var err error
		text, err = i.engine.Transcribe(callCtx, seg.Samples, i.sampleRate)
		return err
	}

	var err error
	if i.breaker != nil {
		err = i.breaker.Execute(call)
		observability.UpdateCircuitBreakerState(i.breaker.Name(), int(i.breaker.State()))
	} else {
		err = call()
	}
	latency := time.Since(start)
	observability.RecordTranscription(err == nil, latency)

	if err != nil {
		observability.RecordError("transcription", "stt")
		i.logger.Error().
			Err(err).
			Dur("segment_duration", seg.Duration).
			Dur("latency", latency).
			Msg("Transcription failed, dropping segment")
		return "", false
	}

	text = strings.TrimSpace(text)
	i.logger.Debug().
		Str("text", text).
		Dur("segment_duration", seg.Duration).
		Dur("latency", latency).
		Msg("Segment transcribed")
	return text, true
}
