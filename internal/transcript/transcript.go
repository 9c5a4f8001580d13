package transcript

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lexiqai/live-transcriber/internal/observability"
)

// Transcript owns the line list, the phrase clock and the rolling word buffer.
// All state sits behind one mutex that is never held across a recognizer,
// merge or translation call. Mutations and their sink notifications are
// serialized so sinks see events in order.
type Transcript struct {
	phraseTimeout time.Duration

	mu         sync.RWMutex
	lines      []Line
	lastPhrase time.Time
	buffer     *RollingBuffer

	emitMu sync.Mutex
	sinks  []Sink
}

// New creates an empty transcript
func New(phraseTimeout time.Duration, maxWords int) *Transcript {
	return &Transcript{
		phraseTimeout: phraseTimeout,
		buffer:        NewRollingBuffer(maxWords),
	}
}

// AddSink registers a sink for subsequent events
func (t *Transcript) AddSink(s Sink) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.sinks = append(t.sinks, s)
}

// PhraseComplete reports whether an arrival at now would start a new phrase.
func (t *Transcript) PhraseComplete(now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phraseComplete(now)
}

func (t *Transcript) phraseComplete(now time.Time) bool {
	return !t.lastPhrase.IsZero() && now.Sub(t.lastPhrase) > t.phraseTimeout
}

// Observe records a recognizer arrival at now. A gap longer than the phrase
// timeout since the previous arrival finalizes the open line and opens a new
// one; otherwise the last line is overwritten. It reports whether a new line was opened.
func (t *Transcript) Observe(text string, now time.Time) bool {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	var events []Event
	opened := false

	t.mu.Lock()
	complete := t.phraseComplete(now)
	t.lastPhrase = now
	last := len(t.lines) - 1

	switch {
	case last < 0 || t.lines[last].Final:
		events = append(events, t.open(text, now))
		opened = true
	case complete:
		events = append(events, t.finalize(last, now), t.open(text, now))
		opened = true
	default:
		t.lines[last].Text = text
		t.lines[last].UpdatedAt = now
		events = append(events, lineEvent(EventUpdated, t.lines[last]))
	}
	t.mu.Unlock()

	t.emit(events)
	return opened
}

// AppendFinal appends an already-final line, finalizing any open line first.
func (t *Transcript) AppendFinal(text string, now time.Time) Line {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	var events []Event

	t.mu.Lock()
	if last := len(t.lines) - 1; last >= 0 && !t.lines[last].Final {
		events = append(events, t.finalize(last, now))
	}
	t.lines = append(t.lines, Line{
		Index:     len(t.lines),
		Text:      text,
		Final:     true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	line := t.lines[len(t.lines)-1]
	t.lastPhrase = now
	events = append(events, lineEvent(EventFinalized, line))
	t.mu.Unlock()

	t.emit(events)
	return line
}

// FinalizeOpen locks the open line, if any.
func (t *Transcript) FinalizeOpen(now time.Time) (Line, bool) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	last := len(t.lines) - 1
	if last < 0 || t.lines[last].Final {
		t.mu.Unlock()
		return Line{}, false
	}
	ev := t.finalize(last, now)
	line := t.lines[last]
	t.mu.Unlock()

	t.emit([]Event{ev})
	return line, true
}

// SetTranslation stores the translation of a finalized line.
func (t *Transcript) SetTranslation(index int, translation string, now time.Time) error {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	if index < 0 || index >= len(t.lines) {
		t.mu.Unlock()
		return fmt.Errorf("line %d out of range (%d lines)", index, len(t.lines))
	}
	if !t.lines[index].Final {
		t.mu.Unlock()
		return fmt.Errorf("line %d is not final", index)
	}
	t.lines[index].Translation = translation
	t.lines[index].UpdatedAt = now
	ev := lineEvent(EventTranslated, t.lines[index])
	t.mu.Unlock()

	t.emit([]Event{ev})
	return nil
}

// MergeFragment merges a recognized fragment into the rolling word buffer.
// The merge engine runs without the lock held. On merge failure the buffer is left unchanged.
func (t *Transcript) MergeFragment(ctx context.Context, merger Merger, fragment string) error {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil
	}

	t.mu.RLock()
	existing := t.buffer.Text()
	t.mu.RUnlock()

	merged, err := merger.Merge(ctx, existing, fragment)
	observability.RecordMerge(err == nil)
	if err != nil {
		return fmt.Errorf("merge fragment: %w", err)
	}

	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	changed := t.buffer.Replace(merged)
	text := t.buffer.Text()
	words := t.buffer.Len()
	t.mu.Unlock()

	observability.SetRollingBufferWords(words)
	if changed {
		t.emit([]Event{{Type: EventBuffer, Buffer: text}})
	}
	return nil
}

// Lines returns a copy of the line list
func (t *Transcript) Lines() []Line {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Line, len(t.lines))
	copy(out, t.lines)
	return out
}

// Len returns the number of lines
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lines)
}

// BufferWords returns a copy of the rolling word buffer
func (t *Transcript) BufferWords() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buffer.Words()
}

// Snapshot returns the lines and rolling buffer text
func (t *Transcript) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lines := make([]Line, len(t.lines))
	copy(lines, t.lines)
	return Snapshot{Lines: lines, Buffer: t.buffer.Text()}
}

// open appends a new open line. Caller holds mu.
func (t *Transcript) open(text string, now time.Time) Event {
	t.lines = append(t.lines, Line{
		Index:     len(t.lines),
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return lineEvent(EventOpened, t.lines[len(t.lines)-1])
}

// finalize locks line i. Caller holds mu.
func (t *Transcript) finalize(i int, now time.Time) Event {
	t.lines[i].Final = true
	t.lines[i].UpdatedAt = now
	return lineEvent(EventFinalized, t.lines[i])
}

func lineEvent(typ EventType, l Line) Event {
	return Event{Type: typ, Line: &l}
}

// emit delivers events to sinks. Caller holds emitMu but not mu.
func (t *Transcript) emit(events []Event) {
	for _, ev := range events {
		if ev.Line != nil {
			observability.RecordLineEvent(string(ev.Type))
		}
		for _, s := range t.sinks {
			s.HandleEvent(ev)
		}
	}
}
