package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/lexiqai/live-transcriber/internal/transcript"
)

// ConsoleSink prints the transcript to a terminal. The open line is redrawn
// in place; finalized lines are committed with a newline.
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	redraw bool
}

// NewConsoleSink creates a console sink. When redraw is false every event is
// printed on its own line, which suits log files and pipes.
func NewConsoleSink(w io.Writer, redraw bool) *ConsoleSink {
	return &ConsoleSink{w: w, redraw: redraw}
}

// HandleEvent implements transcript.Sink
func (c *ConsoleSink) HandleEvent(e transcript.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Type {
	case transcript.EventOpened, transcript.EventUpdated:
		if c.redraw {
			fmt.Fprintf(c.w, "\r\033[K%s", e.Line.Text)
		} else {
			fmt.Fprintf(c.w, "... %s\n", e.Line.Text)
		}
	case transcript.EventFinalized:
		if c.redraw {
			fmt.Fprintf(c.w, "\r\033[K%s\n", e.Line.Text)
		} else {
			fmt.Fprintf(c.w, "[%d] %s\n", e.Line.Index, e.Line.Text)
		}
	case transcript.EventTranslated:
		fmt.Fprintf(c.w, "    > %s\n", e.Line.Translation)
	case transcript.EventBuffer:
		if c.redraw {
			fmt.Fprintf(c.w, "\r\033[K%s", e.Buffer)
		} else {
			fmt.Fprintf(c.w, "%s\n", e.Buffer)
		}
	}
}
