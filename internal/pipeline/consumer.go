package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/lexiqai/live-transcriber/internal/audio"
	"github.com/lexiqai/live-transcriber/internal/config"
	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/segment"
	"github.com/lexiqai/live-transcriber/internal/stt"
)

// enqueue is the producer callback. It never blocks.
func (p *Pipeline) enqueue(f audio.Frame) {
	observability.RecordFrame()
	if !p.frames.Push(f) {
		if !p.frames.Closed() {
			observability.RecordFrameDropped()
		}
		return
	}
	observability.SetQueueDepth(p.frames.Len())
}

func (p *Pipeline) produceFrames(ctx context.Context) {
	defer close(p.producerDone)
	defer p.frames.Close()

	if err := p.deps.Source.Run(ctx, p.enqueue); err != nil && !errors.Is(err, context.Canceled) {
		observability.RecordError("capture", "pipeline")
		p.logger.Error().Err(err).Msg("Capture failed")
		p.fail(err)
		return
	}
	p.logger.Info().Msg("Capture ended")
}

func (p *Pipeline) produceCaptions(ctx context.Context) {
	defer close(p.producerDone)
	defer p.texts.Close()

	push := func(text string) {
		if !p.texts.Push(text) && !p.texts.Closed() {
			observability.RecordError("caption_dropped", "pipeline")
		}
	}
	if err := p.deps.Captions.Run(ctx, push); err != nil {
		observability.RecordError("capture", "pipeline")
		p.logger.Error().Err(err).Msg("Caption polling failed")
		p.fail(err)
	}
}

// consume runs the single consumer until the input is closed and drained or ctx is done
func (p *Pipeline) consume(ctx context.Context, loop func(context.Context)) {
	defer close(p.consumerDone)
	loop(ctx)
}

func (p *Pipeline) nextFrame(ctx context.Context) (audio.Frame, bool) {
	if ctx.Err() != nil {
		return audio.Frame{}, false
	}
	f, err := p.frames.Pop(ctx)
	if err != nil {
		return audio.Frame{}, false
	}
	observability.SetQueueDepth(p.frames.Len())
	return f, true
}

func (p *Pipeline) consumeSegments(ctx context.Context) {
	for {
		f, ok := p.nextFrame(ctx)
		if !ok {
			return
		}
		seg, ok := p.accumulator.Push(f)
		if !ok {
			continue
		}
		observability.RecordSegment(seg.Duration)
		p.processSegment(ctx, seg)
	}
}

// processSegment recognizes one segment. In silence mode every non-empty
// result becomes a final line. In phrase mode the segment is recognized
// together with the rest of the open phrase and the result refines that line.
func (p *Pipeline) processSegment(ctx context.Context, seg segment.Segment) {
	if p.cfg.SegmentationMode != config.ModePhrase {
		text, ok := p.invoker.Transcribe(ctx, seg)
		if !ok || text == "" {
			return
		}
		p.transcript.AppendFinal(text, p.now())
		return
	}

	now := p.now()
	if p.transcript.PhraseComplete(now) {
		p.phrase.Reset()
	}
	text, ok := p.invoker.Transcribe(ctx, p.phrase.Append(seg))
	if !ok || text == "" {
		return
	}
	p.transcript.Observe(text, now)
}

func (p *Pipeline) consumeStreamFrames(ctx context.Context) {
	for {
		f, ok := p.nextFrame(ctx)
		if !ok {
			return
		}
		if err := p.deps.Stream.SendAudio(f.Samples); err != nil {
			p.logger.Debug().Err(err).Msg("Dropped frame for stream recognizer")
		}
	}
}

// consumeResults runs until stop closes resultsStop, then takes whatever the
// recognizer buffered while closing.
func (p *Pipeline) consumeResults() {
	defer p.resultsWG.Done()
	results := p.deps.Stream.Results()
	for {
		select {
		case <-p.resultsStop:
			p.drainResults(results)
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			p.handleResult(r)
		}
	}
}

func (p *Pipeline) drainResults(results <-chan *stt.TranscriptionResult) {
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return
			}
			p.handleResult(r)
		default:
			return
		}
	}
}

// handleResult feeds a streaming result to the phrase tracker. The utterance
// text restarts whenever the phrase timeout has elapsed.
func (p *Pipeline) handleResult(r *stt.TranscriptionResult) {
	if r == nil || strings.TrimSpace(r.Text) == "" {
		return
	}
	now := r.ReceivedAt
	if now.IsZero() {
		now = p.now()
	}
	if p.transcript.PhraseComplete(now) {
		p.utterance.Reset()
	}
	text := p.utterance.Add(r)
	if text == "" {
		return
	}
	p.transcript.Observe(text, now)
}

func (p *Pipeline) consumeTexts(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		text, err := p.texts.Pop(ctx)
		if err != nil {
			return
		}
		if err := p.transcript.MergeFragment(ctx, p.deps.Merger, text); err != nil {
			observability.RecordError("merge", "pipeline")
			p.logger.Warn().Err(err).Msg("Merge failed, keeping rolling buffer")
		}
	}
}
