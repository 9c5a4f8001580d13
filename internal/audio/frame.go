package audio

import "time"

// Frame is a fixed-length block of mono samples normalized to [-1, 1].
// Frames are immutable once handed to the pipeline.
type Frame struct {
	Samples   []float32
	Timestamp time.Time
}

// Duration returns the playback length of the frame at sampleRate.
func (f Frame) Duration(sampleRate int) time.Duration {
	return SamplesDuration(len(f.Samples), sampleRate)
}

// SamplesDuration converts a sample count into a duration.
func SamplesDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}
