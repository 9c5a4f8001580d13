package audio

import (
	"testing"
)

func TestRingBuffer_WriteRead(t *testing.T) {
	rb := NewRingBuffer(100)

	data := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
	written := rb.Write(data)
	if written != len(data) {
		t.Errorf("Expected to write %d samples, wrote %d", len(data), written)
	}
	if rb.Available() != len(data) {
		t.Errorf("Expected %d samples available, got %d", len(data), rb.Available())
	}

	readData := make([]float32, len(data))
	read := rb.Read(readData)
	if read != len(data) {
		t.Errorf("Expected to read %d samples, read %d", len(data), read)
	}
	for i := range data {
		if readData[i] != data[i] {
			t.Errorf("Expected sample %d to be %f, got %f", i, data[i], readData[i])
		}
	}
	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty after reading all data")
	}
}

func TestRingBuffer_Full(t *testing.T) {
	rb := NewRingBuffer(10)

	data := make([]float32, 15)
	written := rb.Write(data)
	if written != 9 {
		t.Errorf("Expected to write 9 samples (buffer size - 1), wrote %d", written)
	}
	if !rb.IsFull() {
		t.Error("Expected buffer to be full")
	}
	if rb.Space() != 0 {
		t.Errorf("Expected no space left, got %d", rb.Space())
	}
}

func TestRingBuffer_Wraparound(t *testing.T) {
	rb := NewRingBuffer(10)

	rb.Write([]float32{1, 2, 3, 4, 5})
	rb.Read(make([]float32, 3))
	rb.Write([]float32{6, 7, 8, 9, 10})

	readData := make([]float32, 7)
	read := rb.Read(readData)
	if read != 7 {
		t.Errorf("Expected to read 7 samples, read %d", read)
	}

	expected := []float32{4, 5, 6, 7, 8, 9, 10}
	for i := range expected {
		if readData[i] != expected[i] {
			t.Errorf("Expected sample %d to be %f, got %f", i, expected[i], readData[i])
		}
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(100)
	rb.Write([]float32{1, 2, 3})
	rb.Clear()

	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty after Clear")
	}
}

func TestChunker_FixedFrames(t *testing.T) {
	c := NewChunker(4)

	frames := c.Push([]float32{1, 2, 3})
	if len(frames) != 0 {
		t.Fatalf("Expected no frame from a partial chunk, got %d", len(frames))
	}
	if c.Pending() != 3 {
		t.Errorf("Expected 3 pending samples, got %d", c.Pending())
	}

	frames = c.Push([]float32{4, 5, 6, 7, 8, 9})
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if len(f.Samples) != 4 {
			t.Errorf("Frame %d: expected 4 samples, got %d", i, len(f.Samples))
		}
	}
	if frames[1].Samples[0] != 5 || frames[1].Samples[3] != 8 {
		t.Errorf("Expected second frame [5..8], got %v", frames[1].Samples)
	}
	if c.Pending() != 1 {
		t.Errorf("Expected 1 pending sample, got %d", c.Pending())
	}
}

func TestChunker_LargePush(t *testing.T) {
	c := NewChunker(8)

	// Larger than the internal ring, so Push must drain while writing
	frames := c.Push(make([]float32, 100))
	if len(frames) != 12 {
		t.Errorf("Expected 12 frames, got %d", len(frames))
	}
	if c.Pending() != 4 {
		t.Errorf("Expected 4 pending samples, got %d", c.Pending())
	}

	c.Reset()
	if c.Pending() != 0 {
		t.Errorf("Expected no pending samples after Reset, got %d", c.Pending())
	}
}
