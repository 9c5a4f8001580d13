package transcript

import "time"

// Line is one utterance slot. Only the last line of a transcript may be open.
type Line struct {
	Index       int       `json:"index" yaml:"index"`
	Text        string    `json:"text" yaml:"text"`
	Final       bool      `json:"final" yaml:"final"`
	Translation string    `json:"translation,omitempty" yaml:"translation,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// EventType identifies what happened to the transcript
type EventType string

const (
	EventOpened     EventType = "opened"     // a new open line was appended
	EventUpdated    EventType = "updated"    // a line's text or translation changed in place
	EventFinalized  EventType = "finalized"  // a line was locked
	EventBuffer     EventType = "buffer"     // the rolling word buffer changed
	EventTranslated EventType = "translated" // a finalized line received its translation
)

// Event is delivered to sinks in the order the transcript changed.
// Line events carry a copy of the line; buffer events carry the buffer text.
type Event struct {
	Type   EventType `json:"type"`
	Line   *Line     `json:"line,omitempty"`
	Buffer string    `json:"buffer,omitempty"`
}

// Sink consumes transcript events. HandleEvent must not block.
type Sink interface {
	HandleEvent(Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(Event)

// HandleEvent calls f(e)
func (f SinkFunc) HandleEvent(e Event) {
	f(e)
}

// Snapshot is a point-in-time copy of the transcript state
type Snapshot struct {
	Lines  []Line `json:"lines" yaml:"lines"`
	Buffer string `json:"buffer,omitempty" yaml:"buffer,omitempty"`
}
