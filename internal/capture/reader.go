package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ReaderSource reads raw 16-bit little-endian mono PCM from a stream such as
// stdin or a named pipe fed by an audio recorder.
type ReaderSource struct {
	r         io.Reader
	frameSize int
	logger    zerolog.Logger
}

// NewReaderSource creates a source reading PCM from r
func NewReaderSource(r io.Reader, frameSize int, logger zerolog.Logger) *ReaderSource {
	return &ReaderSource{r: r, frameSize: frameSize, logger: logger}
}

// Run reads until EOF, a read error, or ctx is done. EOF ends capture without error.
// A blocked read is only noticed after it returns.
func (s *ReaderSource) Run(ctx context.Context, emit Emit) error {
	dec := newPCMDecoder(s.frameSize)
	buf := make([]byte, s.frameSize*2)
	frames := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := s.r.Read(buf)
		if n > 0 {
			for _, f := range dec.decode(buf[:n]) {
				emit(f)
				frames++
			}
		}
		if errors.Is(err, io.EOF) {
			s.logger.Info().Int("frames", frames).Msg("Audio input ended")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read audio input: %w", err)
		}
	}
}
