// Package pipeline wires capture, segmentation, recognition and the transcript
// together: one producer feeding a FIFO, one consumer draining it, and a relay
// that translates and voices finalized lines off the consumer's path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/audio"
	"github.com/lexiqai/live-transcriber/internal/capture"
	"github.com/lexiqai/live-transcriber/internal/config"
	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/queue"
	"github.com/lexiqai/live-transcriber/internal/resilience"
	"github.com/lexiqai/live-transcriber/internal/segment"
	"github.com/lexiqai/live-transcriber/internal/stt"
	"github.com/lexiqai/live-transcriber/internal/transcript"
	"github.com/lexiqai/live-transcriber/internal/translate"
	"github.com/lexiqai/live-transcriber/internal/tts"
)

var (
	// ErrNotRunning is returned by Ready before Start and after Stop
	ErrNotRunning = errors.New("pipeline is not running")
	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("pipeline already started")
)

// CaptionSource polls caption text for ocr mode
type CaptionSource interface {
	Run(ctx context.Context, emit func(string)) error
}

// AudioSink receives synthesized speech for a translated line. It must not block.
type AudioSink func(*tts.AudioChunk)

// Deps are the collaborators a pipeline runs with. Which ones are required
// depends on the segmentation mode.
type Deps struct {
	Source   capture.Source       // silence, phrase, stream
	Engine   stt.Transcriber      // silence, phrase
	Stream   stt.StreamRecognizer // stream
	Captions CaptionSource        // ocr
	Merger   transcript.Merger    // ocr

	Translator  translate.Translator // optional
	Synthesizer tts.Synthesizer      // optional, needs Translator
	AudioSinks  []AudioSink

	Sinks []transcript.Sink

	// Breaker guards the batch speech engine; nil disables it
	Breaker *resilience.CircuitBreaker
}

// Pipeline runs one transcription session
type Pipeline struct {
	cfg        *config.Config
	deps       Deps
	logger     zerolog.Logger
	transcript *transcript.Transcript
	retry      *resilience.RetryConfig
	now        func() time.Time

	frames *queue.Queue[audio.Frame]
	texts  *queue.Queue[string]
	finals *queue.Queue[transcript.Line]

	// Owned by the consumer goroutine, and by Stop once the consumer has exited
	accumulator *segment.Accumulator
	invoker     *stt.Invoker
	phrase      *segment.PhraseAudio
	utterance   stt.UtteranceBuffer

	mu          sync.Mutex
	started     bool
	running     bool
	err         error
	cancel      context.CancelFunc
	relayCancel context.CancelFunc
	stopOnce    sync.Once

	producerDone chan struct{}
	consumerDone chan struct{}
	done         chan struct{}
	resultsWG    sync.WaitGroup
	resultsStop  chan struct{}
	relayDone    chan struct{}
}

// New validates deps against the configured mode and builds a pipeline
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) (*Pipeline, error) {
	if err := checkDeps(cfg, deps); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		deps:       deps,
		logger:     logger,
		transcript: transcript.New(cfg.PhraseTimeoutDuration(), cfg.MaxWords),
		retry: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
		now:          time.Now,
		frames:       queue.New[audio.Frame](cfg.QueueCapacity),
		texts:        queue.New[string](cfg.QueueCapacity),
		finals:       queue.New[transcript.Line](0),
		producerDone: make(chan struct{}),
		consumerDone: make(chan struct{}),
		done:         make(chan struct{}),
		resultsStop:  make(chan struct{}),
		relayDone:    make(chan struct{}),
	}

	switch cfg.SegmentationMode {
	case config.ModeSilence, config.ModePhrase:
		p.accumulator = segment.NewAccumulator(
			audio.NewSilenceClassifier(cfg.SilenceThreshold),
			cfg.SampleRate,
			cfg.SilenceBufferSamples(),
			cfg.MaxSegmentSamples(),
		)
		p.invoker = stt.NewInvoker(deps.Engine, cfg.SampleRate, cfg.TranscriptionTimeoutDuration(), deps.Breaker, logger)
		p.phrase = segment.NewPhraseAudio(cfg.SampleRate)
	}

	for _, s := range deps.Sinks {
		p.transcript.AddSink(s)
	}
	if deps.Translator != nil {
		p.transcript.AddSink(transcript.SinkFunc(p.queueFinal))
	}
	return p, nil
}

func checkDeps(cfg *config.Config, deps Deps) error {
	switch cfg.SegmentationMode {
	case config.ModeSilence, config.ModePhrase:
		if deps.Source == nil || deps.Engine == nil {
			return fmt.Errorf("%s mode needs a capture source and a speech engine", cfg.SegmentationMode)
		}
	case config.ModeStream:
		if deps.Source == nil || deps.Stream == nil {
			return fmt.Errorf("stream mode needs a capture source and a stream recognizer")
		}
	case config.ModeOCR:
		if deps.Captions == nil || deps.Merger == nil {
			return fmt.Errorf("ocr mode needs a caption source and a merge engine")
		}
	default:
		return fmt.Errorf("unknown segmentation mode %q", cfg.SegmentationMode)
	}
	if deps.Synthesizer != nil && deps.Translator == nil {
		return fmt.Errorf("speech synthesis needs a translator")
	}
	return nil
}

// Transcript returns the shared transcript
func (p *Pipeline) Transcript() *transcript.Transcript {
	return p.transcript
}

// Start launches the producer, the consumer and the relay. It returns once
// they are running; a failure to open the stream recognizer is returned here.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	relayCtx, relayCancel := context.WithCancel(context.WithoutCancel(ctx))

	if p.cfg.SegmentationMode == config.ModeStream {
		if err := p.deps.Stream.Start(runCtx); err != nil {
			cancel()
			relayCancel()
			return fmt.Errorf("failed to start stream recognizer: %w", err)
		}
	}

	p.mu.Lock()
	p.cancel = cancel
	p.relayCancel = relayCancel
	p.running = true
	p.mu.Unlock()

	switch p.cfg.SegmentationMode {
	case config.ModeOCR:
		go p.produceCaptions(runCtx)
		go p.consume(runCtx, p.consumeTexts)
	case config.ModeStream:
		go p.produceFrames(runCtx)
		go p.consume(runCtx, p.consumeStreamFrames)
		p.resultsWG.Add(1)
		go p.consumeResults()
	default:
		go p.produceFrames(runCtx)
		go p.consume(runCtx, p.consumeSegments)
	}

	go func() {
		<-p.producerDone
		<-p.consumerDone
		close(p.done)
	}()

	if p.deps.Translator != nil {
		go p.relay(relayCtx)
	} else {
		close(p.relayDone)
	}

	p.logger.Info().
		Str("mode", p.cfg.SegmentationMode).
		Int("sample_rate", p.cfg.SampleRate).
		Int("frame_size", p.cfg.FrameSize).
		Bool("translation", p.deps.Translator != nil).
		Bool("synthesis", p.deps.Synthesizer != nil).
		Msg("Pipeline started")
	return nil
}

// Done is closed once capture has ended and the consumer has drained the queue,
// either because the source finished or because the pipeline is stopping.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Err returns the capture failure that ended the session, if any
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Ready reports whether the pipeline is accepting input
func (p *Pipeline) Ready(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if !p.running {
		return ErrNotRunning
	}
	return nil
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}

// Stop shuts the session down: it stops capture, joins the consumer, flushes
// partial audio when FLUSH_ON_STOP is set, and waits for the relay to finish
// pending lines until ctx is done.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	started := p.started && p.cancel != nil
	p.mu.Unlock()
	if !started {
		return nil
	}

	var stopErr error
	p.stopOnce.Do(func() {
		stopErr = p.stop(ctx)
	})
	return stopErr
}

func (p *Pipeline) stop(ctx context.Context) error {
	p.mu.Lock()
	p.running = false
	cancel := p.cancel
	relayCancel := p.relayCancel
	p.mu.Unlock()

	cancel()
	p.frames.Close()
	p.texts.Close()

	<-p.consumerDone
	if n := p.frames.Discard() + p.texts.Discard(); n > 0 {
		p.logger.Info().Int("pending", n).Msg("Discarded queued input on stop")
	}
	observability.SetQueueDepth(0)

	// Closing the recognizer can deliver its last finals, so results are
	// consumed until after Close returns
	if p.cfg.SegmentationMode == config.ModeStream {
		if err := p.deps.Stream.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close stream recognizer")
		}
		close(p.resultsStop)
		p.resultsWG.Wait()
	}

	p.flush(ctx)
	p.finals.Close()

	var err error
	select {
	case <-p.relayDone:
	case <-ctx.Done():
		relayCancel()
		<-p.relayDone
		err = fmt.Errorf("relay did not drain: %w", ctx.Err())
	}
	relayCancel()

	// A source blocked in a read is abandoned rather than waited for
	select {
	case <-p.producerDone:
	case <-ctx.Done():
		p.logger.Warn().Msg("Capture source did not stop in time")
	}

	p.logger.Info().Int("lines", p.transcript.Len()).Msg("Pipeline stopped")
	return err
}

// flush handles the partial state left after the consumer exits
func (p *Pipeline) flush(ctx context.Context) {
	if p.accumulator != nil {
		if !p.cfg.FlushOnStop {
			if n := p.accumulator.Buffered(); n > 0 {
				p.logger.Debug().Int("samples", n).Msg("Discarding partial segment")
			}
			p.accumulator.Discard()
		} else if seg, ok := p.accumulator.Flush(); ok {
			observability.RecordSegment(seg.Duration)
			p.processSegment(ctx, seg)
		}
	}

	if p.cfg.FlushOnStop {
		if line, ok := p.transcript.FinalizeOpen(p.now()); ok {
			p.logger.Debug().Int("index", line.Index).Msg("Finalized open line on stop")
		}
	}
}
