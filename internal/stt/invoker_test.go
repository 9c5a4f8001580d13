package stt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/resilience"
	"github.com/lexiqai/live-transcriber/internal/segment"
)

type fakeEngine struct {
	calls   int
	results []string
	errs    []error
	delay   time.Duration
}

func (f *fakeEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	i := f.calls
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return "", nil
}

func testSegment() segment.Segment {
	return segment.Segment{Samples: make([]float32, 1600), Duration: 100 * time.Millisecond}
}

func TestInvoker_TrimsText(t *testing.T) {
	engine := &fakeEngine{results: []string{"  hello world \n"}}
	inv := NewInvoker(engine, 16000, 0, nil, zerolog.Nop())

	text, ok := inv.Transcribe(context.Background(), testSegment())
	if !ok || text != "hello world" {
		t.Errorf("Expected 'hello world', got %q ok=%v", text, ok)
	}
}

// A failing segment is dropped and the next one is processed normally.
func TestInvoker_FailureDropsSegment(t *testing.T) {
	engine := &fakeEngine{
		errs:    []error{errors.New("engine exploded"), nil},
		results: []string{"", "second"},
	}
	inv := NewInvoker(engine, 16000, 0, nil, zerolog.Nop())

	if text, ok := inv.Transcribe(context.Background(), testSegment()); ok || text != "" {
		t.Errorf("Expected failed segment to be dropped, got %q ok=%v", text, ok)
	}
	text, ok := inv.Transcribe(context.Background(), testSegment())
	if !ok || text != "second" {
		t.Errorf("Expected next segment to succeed, got %q ok=%v", text, ok)
	}
	if engine.calls != 2 {
		t.Errorf("Expected no retry, got %d calls", engine.calls)
	}
}

func TestInvoker_Timeout(t *testing.T) {
	engine := &fakeEngine{delay: time.Second, results: []string{"late"}}
	inv := NewInvoker(engine, 16000, 20*time.Millisecond, nil, zerolog.Nop())

	start := time.Now()
	if _, ok := inv.Transcribe(context.Background(), testSegment()); ok {
		t.Error("Expected timeout to drop the segment")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected timeout to cut the call short, took %v", elapsed)
	}
}

func TestInvoker_EmptySegment(t *testing.T) {
	engine := &fakeEngine{}
	inv := NewInvoker(engine, 16000, 0, nil, zerolog.Nop())
	if _, ok := inv.Transcribe(context.Background(), segment.Segment{}); ok {
		t.Error("Expected empty segment to be rejected")
	}
	if engine.calls != 0 {
		t.Error("Expected engine not to be called for an empty segment")
	}
}

func TestInvoker_CircuitBreakerOpens(t *testing.T) {
	engine := &fakeEngine{errs: []error{errors.New("1"), errors.New("2"), nil}}
	breaker := resilience.NewCircuitBreaker("stt-test", 2, time.Hour)
	inv := NewInvoker(engine, 16000, 0, breaker, zerolog.Nop())

	inv.Transcribe(context.Background(), testSegment())
	inv.Transcribe(context.Background(), testSegment())
	if breaker.State() != resilience.StateOpen {
		t.Fatalf("Expected breaker open, got %s", breaker.State())
	}

	if _, ok := inv.Transcribe(context.Background(), testSegment()); ok {
		t.Error("Expected call rejected while breaker is open")
	}
	if engine.calls != 2 {
		t.Errorf("Expected engine skipped while open, got %d calls", engine.calls)
	}
}
