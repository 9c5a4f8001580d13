package pipeline

import (
	"context"
	"strings"

	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/resilience"
	"github.com/lexiqai/live-transcriber/internal/transcript"
	"github.com/lexiqai/live-transcriber/internal/translate"
	"github.com/lexiqai/live-transcriber/internal/tts"
)

// queueFinal is a transcript sink handing finalized lines to the relay
func (p *Pipeline) queueFinal(e transcript.Event) {
	if e.Type != transcript.EventFinalized || e.Line == nil {
		return
	}
	if !p.finals.Push(*e.Line) {
		p.logger.Warn().Int("index", e.Line.Index).Msg("Relay closed, line will not be translated")
	}
}

// relay translates finalized lines in order and voices the translations
func (p *Pipeline) relay(ctx context.Context) {
	defer close(p.relayDone)
	for {
		line, err := p.finals.Pop(ctx)
		if err != nil {
			return
		}
		p.relayLine(ctx, line)
	}
}

func (p *Pipeline) relayLine(ctx context.Context, line transcript.Line) {
	text := strings.TrimSpace(line.Text)
	if text == "" {
		return
	}
	logger := p.logger.With().Int("index", line.Index).Logger()

	var translation string
	err := resilience.Retry(ctx, func(ctx context.Context) error {
		var err error
		translation, err = p.deps.Translator.Translate(ctx, text, p.cfg.TargetLanguage)
		return err
	}, p.retry, resilience.IsRetryableNetworkError)
	observability.RecordTranslation(err == nil)
	if err != nil {
		observability.RecordError("translation", "relay")
		logger.Error().Err(err).Msg("Translation failed, line left untranslated")
		return
	}
	if translation == "" {
		return
	}
	if err := p.transcript.SetTranslation(line.Index, translation, p.now()); err != nil {
		logger.Error().Err(err).Msg("Failed to store translation")
		return
	}

	if p.deps.Synthesizer == nil {
		return
	}
	language, ok := translate.LanguageCode(p.cfg.TargetLanguage)
	if !ok {
		logger.Warn().Str("target_language", p.cfg.TargetLanguage).Msg("Unknown language code, letting the synthesizer decide")
	}

	var chunk *tts.AudioChunk
	err = resilience.Retry(ctx, func(ctx context.Context) error {
		var err error
		chunk, err = p.deps.Synthesizer.Synthesize(ctx, translation, language)
		return err
	}, p.retry, resilience.IsRetryableNetworkError)
	observability.RecordSynthesis(err == nil)
	if err != nil {
		observability.RecordError("synthesis", "relay")
		logger.Error().Err(err).Msg("Speech synthesis failed")
		return
	}

	for _, sink := range p.deps.AudioSinks {
		sink(chunk)
	}
	logger.Debug().Int("bytes", len(chunk.Data)).Msg("Translation voiced")
}
