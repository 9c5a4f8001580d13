package audio

import (
	"sync"
	"time"
)

// RingBuffer is a thread-safe ring buffer of normalized samples
type RingBuffer struct {
	buffer []float32
	size   int
	read   int
	write  int
	mu     sync.RWMutex
}

// NewRingBuffer creates a ring buffer holding up to size-1 samples
func NewRingBuffer(size int) *RingBuffer {
	if size < 2 {
		size = 2
	}
	return &RingBuffer{
		buffer: make([]float32, size),
		size:   size,
	}
}

// Write writes samples to the ring buffer
// Returns the number of samples written (may be less than len(data) if buffer is full)
func (rb *RingBuffer) Write(data []float32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for _, s := range data {
		if (rb.write+1)%rb.size == rb.read {
			break // Buffer full
		}
		rb.buffer[rb.write] = s
		rb.write = (rb.write + 1) % rb.size
		written++
	}
	return written
}

// Read reads samples from the ring buffer
// Returns the number of samples read
func (rb *RingBuffer) Read(data []float32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := range data {
		if rb.read == rb.write {
			break // Buffer empty
		}
		data[i] = rb.buffer[rb.read]
		rb.read = (rb.read + 1) % rb.size
		read++
	}
	return read
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.available()
}

func (rb *RingBuffer) available() int {
	if rb.write >= rb.read {
		return rb.write - rb.read
	}
	return rb.size - rb.read + rb.write
}

// Space returns the number of samples that can still be written
func (rb *RingBuffer) Space() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size - rb.available() - 1 // -1 to prevent full/empty ambiguity
}

// Clear clears the buffer
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = 0
	rb.write = 0
}

// IsEmpty returns true if the buffer is empty
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.read == rb.write
}

// IsFull returns true if the buffer is full
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return (rb.write+1)%rb.size == rb.read
}

// Chunker re-slices arbitrarily sized sample chunks into fixed-size frames.
// Sources that receive audio in network-sized pieces push through it.
type Chunker struct {
	frameSize int
	ring      *RingBuffer
	now       func() time.Time
}

// NewChunker creates a chunker emitting frames of frameSize samples
func NewChunker(frameSize int) *Chunker {
	return &Chunker{
		frameSize: frameSize,
		ring:      NewRingBuffer(frameSize*4 + 1),
		now:       time.Now,
	}
}

// Push adds samples and returns every complete frame now available.
// Leftover samples stay buffered until the next Push.
func (c *Chunker) Push(samples []float32) []Frame {
	var frames []Frame
	for len(samples) > 0 {
		n := c.ring.Write(samples)
		samples = samples[n:]
		for c.ring.Available() >= c.frameSize {
			buf := make([]float32, c.frameSize)
			c.ring.Read(buf)
			frames = append(frames, Frame{Samples: buf, Timestamp: c.now()})
		}
	}
	return frames
}

// Pending returns the number of buffered samples not yet emitted as a frame.
func (c *Chunker) Pending() int {
	return c.ring.Available()
}

// Reset discards buffered samples.
func (c *Chunker) Reset() {
	c.ring.Clear()
}
