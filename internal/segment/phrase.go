package segment

import (
	"time"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

// MaxPhraseDuration bounds the audio re-submitted for an open phrase.
// Whisper-style engines only accept about 30s per request.
const MaxPhraseDuration = 30 * time.Second

// PhraseAudio collects the segments of the phrase that is still open so a batch
// recognizer can re-transcribe the whole phrase on every new segment.
type PhraseAudio struct {
	sampleRate int
	maxSamples int
	samples    []float32
	start      time.Time
}

// NewPhraseAudio creates an empty phrase buffer
func NewPhraseAudio(sampleRate int) *PhraseAudio {
	return &PhraseAudio{
		sampleRate: sampleRate,
		maxSamples: int(MaxPhraseDuration.Seconds() * float64(sampleRate)),
	}
}

// Append adds a segment and returns the phrase audio to transcribe.
// When the phrase outgrows MaxPhraseDuration only its most recent audio is kept.
func (p *PhraseAudio) Append(seg Segment) Segment {
	if len(p.samples) == 0 {
		p.start = seg.Start
	}
	p.samples = append(p.samples, seg.Samples...)
	if over := len(p.samples) - p.maxSamples; p.maxSamples > 0 && over > 0 {
		p.samples = append([]float32(nil), p.samples[over:]...)
		p.start = p.start.Add(audio.SamplesDuration(over, p.sampleRate))
	}

	out := make([]float32, len(p.samples))
	copy(out, p.samples)
	return Segment{
		Samples:  out,
		Start:    p.start,
		Duration: audio.SamplesDuration(len(out), p.sampleRate),
	}
}

// Reset starts a new phrase
func (p *PhraseAudio) Reset() {
	p.samples = nil
	p.start = time.Time{}
}

// Len returns the buffered sample count
func (p *PhraseAudio) Len() int {
	return len(p.samples)
}
