package capture

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/lexiqai/live-transcriber/internal/audio"
)

var (
	// ErrSourceBusy is returned when a second client tries to stream into a source
	ErrSourceBusy = errors.New("capture source already has an active stream")
	// ErrNotRunning is returned when audio arrives before the pipeline started the source
	ErrNotRunning = errors.New("capture source is not running")
)

// Emit hands a frame to the pipeline. It must not block.
type Emit func(audio.Frame)

// Source produces fixed-size frames until ctx is done or the stream fails.
// A returned error means the capture device or stream is gone.
type Source interface {
	Run(ctx context.Context, emit Emit) error
}

// streamBase lets an HTTP handler feed a running pipeline. Only one client may
// stream at a time; its connection is closed when the pipeline stops.
type streamBase struct {
	mu     sync.Mutex
	emit   Emit
	active io.Closer
}

func (b *streamBase) run(ctx context.Context, emit Emit) error {
	b.mu.Lock()
	if b.emit != nil {
		b.mu.Unlock()
		return errors.New("capture source already running")
	}
	b.emit = emit
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	b.emit = nil
	if b.active != nil {
		b.active.Close()
	}
	b.mu.Unlock()
	return nil
}

// acquire claims the source for one connection
func (b *streamBase) acquire(conn io.Closer) (Emit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emit == nil {
		return nil, ErrNotRunning
	}
	if b.active != nil {
		return nil, ErrSourceBusy
	}
	b.active = conn
	return b.emit, nil
}

func (b *streamBase) release(conn io.Closer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == conn {
		b.active = nil
	}
}

// Active reports whether a client is currently streaming
func (b *streamBase) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil
}

// pcmDecoder turns a byte stream of 16-bit little-endian PCM into fixed frames,
// carrying a dangling odd byte over to the next chunk.
type pcmDecoder struct {
	chunker *audio.Chunker
	carry   []byte
}

func newPCMDecoder(frameSize int) *pcmDecoder {
	return &pcmDecoder{chunker: audio.NewChunker(frameSize)}
}

func (d *pcmDecoder) decode(data []byte) []audio.Frame {
	if len(d.carry) > 0 {
		data = append(d.carry, data...)
		d.carry = nil
	}
	if len(data)%2 != 0 {
		d.carry = []byte{data[len(data)-1]}
		data = data[:len(data)-1]
	}
	samples, err := audio.PCM16ToFloat32(data)
	if err != nil {
		return nil
	}
	return d.chunker.Push(samples)
}
