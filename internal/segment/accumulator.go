package segment

import (
	"time"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

// State is the accumulator's recording state
type State int

const (
	// StateIdle waits for the first voiced frame
	StateIdle State = iota
	// StateRecording collects voiced frames until enough trailing silence
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}

// Segment is one contiguous run of voiced audio submitted for recognition
type Segment struct {
	Samples  []float32
	Start    time.Time
	Duration time.Duration
}

// Accumulator turns a frame stream into voiced segments bounded by trailing silence.
// Silent frames advance the silence counter but are never part of segment content.
// It is not safe for concurrent use; the pipeline consumer owns it.
type Accumulator struct {
	classifier     audio.SilenceClassifier
	sampleRate     int
	silenceSamples int
	maxSamples     int

	state          State
	silenceCounter int
	buf            []float32
	start          time.Time
}

// NewAccumulator creates an accumulator. silenceSamples is the trailing silence,
// in samples, that closes a segment. maxSamples caps a segment's length; 0 disables the cap.
func NewAccumulator(classifier audio.SilenceClassifier, sampleRate, silenceSamples, maxSamples int) *Accumulator {
	return &Accumulator{
		classifier:     classifier,
		sampleRate:     sampleRate,
		silenceSamples: silenceSamples,
		maxSamples:     maxSamples,
	}
}

// Push feeds one frame and returns a segment when one is finalized.
func (a *Accumulator) Push(frame audio.Frame) (Segment, bool) {
	silent := a.classifier.IsSilent(frame.Samples)

	switch a.state {
	case StateIdle:
		if silent {
			return Segment{}, false
		}
		a.state = StateRecording
		a.silenceCounter = 0
		a.start = frame.Timestamp
		a.buf = append(make([]float32, 0, len(frame.Samples)*8), frame.Samples...)

	case StateRecording:
		if silent {
			a.silenceCounter += len(frame.Samples)
			if a.silenceCounter >= a.silenceSamples {
				return a.emit()
			}
			return Segment{}, false
		}
		a.buf = append(a.buf, frame.Samples...)
		a.silenceCounter = 0
	}

	if a.maxSamples > 0 && len(a.buf) >= a.maxSamples {
		return a.emit()
	}
	return Segment{}, false
}

// Flush force-finalizes a partial recording, used on shutdown when flushing is enabled.
func (a *Accumulator) Flush() (Segment, bool) {
	if a.state != StateRecording {
		return Segment{}, false
	}
	return a.emit()
}

// Discard drops any partial recording.
func (a *Accumulator) Discard() {
	a.reset()
}

// State returns the current recording state
func (a *Accumulator) State() State {
	return a.state
}

// SilenceCounter returns the consecutive silent samples seen while recording
func (a *Accumulator) SilenceCounter() int {
	return a.silenceCounter
}

// Buffered returns the number of voiced samples in the open recording
func (a *Accumulator) Buffered() int {
	return len(a.buf)
}

func (a *Accumulator) emit() (Segment, bool) {
	samples := a.buf
	start := a.start
	a.reset()
	if len(samples) == 0 {
		return Segment{}, false
	}
	return Segment{
		Samples:  samples,
		Start:    start,
		Duration: audio.SamplesDuration(len(samples), a.sampleRate),
	}, true
}

func (a *Accumulator) reset() {
	a.state = StateIdle
	a.silenceCounter = 0
	a.buf = nil
	a.start = time.Time{}
}
