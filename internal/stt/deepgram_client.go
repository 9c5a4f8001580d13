package stt

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/audio"
	"github.com/lexiqai/live-transcriber/internal/config"
	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/resilience"
)

// ensure this satisfies the interface
var _ StreamRecognizer = (*DeepgramClient)(nil)

// messageCallbackHandler embeds the default handler and overrides only the methods we need
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	handler      func(*msginterfaces.MessageResponse)
	utteranceEnd func()
	errorHandler func(*msginterfaces.ErrorResponse) error
}

// Message forwards transcription results
func (m *messageCallbackHandler) Message(message *msginterfaces.MessageResponse) error {
	m.handler(message)
	return nil
}

// UtteranceEnd marks the end of speech when no speech_final result was sent
func (m *messageCallbackHandler) UtteranceEnd(_ *msginterfaces.UtteranceEndResponse) error {
	if m.utteranceEnd != nil {
		m.utteranceEnd()
	}
	return nil
}

// Error overrides the default handler to use our custom error handling
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if m.errorHandler != nil {
		return m.errorHandler(errorResponse)
	}
	return m.DefaultCallbackHandler.Error(errorResponse)
}

// DeepgramClient streams linear16 audio to Deepgram and delivers its results
type DeepgramClient struct {
	config         *config.Config
	logger         zerolog.Logger
	client         *listenClient.WSCallback
	results        chan *TranscriptionResult
	mu             sync.RWMutex
	isActive       bool
	ctx            context.Context
	cancel         context.CancelFunc
	circuitBreaker *resilience.CircuitBreaker
	now            func() time.Time
}

// NewDeepgramClient creates a new Deepgram streaming client
func NewDeepgramClient(cfg *config.Config, logger zerolog.Logger) *DeepgramClient {
	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &DeepgramClient{
		config:         cfg,
		logger:         logger,
		results:        make(chan *TranscriptionResult, 256),
		circuitBreaker: circuitBreaker,
		now:            time.Now,
	}
}

// Start opens the Deepgram streaming session
func (d *DeepgramClient) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.ctx == nil {
		d.ctx, d.cancel = context.WithCancel(ctx)
	}
	d.mu.Unlock()
	return d.connect()
}

func (d *DeepgramClient) connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isActive {
		return fmt.Errorf("deepgram client is already active")
	}

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.config.DeepgramModel,
		Language:       d.config.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     d.config.SampleRate,
	}

	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		handler:                d.handleDeepgramMessage,
		utteranceEnd:           d.handleUtteranceEnd,
		errorHandler:           d.handleError,
	}

	client, err := listenClient.NewWSUsingCallback(d.ctx, d.config.DeepgramAPIKey, nil, tOptions, callback)
	if err != nil {
		d.circuitBreaker.RecordResult(false)
		return fmt.Errorf("failed to create Deepgram client: %w", err)
	}
	if !client.Connect() {
		d.circuitBreaker.RecordResult(false)
		return fmt.Errorf("failed to connect to Deepgram")
	}

	d.client = client
	d.isActive = true
	d.circuitBreaker.RecordResult(true)
	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.State()))

	d.logger.Info().
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Int("sample_rate", d.config.SampleRate).
		Msg("Deepgram streaming client started")
	return nil
}

func (d *DeepgramClient) handleError(errorResponse *msginterfaces.ErrorResponse) error {
	d.logger.Error().Interface("error", errorResponse).Msg("Deepgram error")

	d.circuitBreaker.RecordResult(false)
	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.State()))
	observability.RecordError("stream", "deepgram")

	select {
	case <-d.ctx.Done():
		return nil
	default:
	}

	d.mu.Lock()
	d.isActive = false
	d.mu.Unlock()

	go d.attemptReconnect()
	return nil
}

// handleDeepgramMessage converts transcription results
func (d *DeepgramClient) handleDeepgramMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return
	}

	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" && !msg.SpeechFinal {
		return
	}

	d.publish(&TranscriptionResult{
		Text:        alt.Transcript,
		IsFinal:     msg.IsFinal,
		SpeechFinal: msg.SpeechFinal,
		Confidence:  alt.Confidence,
		ReceivedAt:  d.now(),
	})
}

func (d *DeepgramClient) handleUtteranceEnd() {
	d.publish(&TranscriptionResult{IsFinal: true, SpeechFinal: true, ReceivedAt: d.now()})
}

func (d *DeepgramClient) publish(result *TranscriptionResult) {
	select {
	case d.results <- result:
		d.logger.Debug().
			Str("text", result.Text).
			Bool("is_final", result.IsFinal).
			Bool("speech_final", result.SpeechFinal).
			Msg("Deepgram result")
	default:
		observability.RecordError("results_full", "deepgram")
		d.logger.Warn().Str("text", result.Text).Msg("Result channel full, dropping Deepgram result")
	}
}

// SendAudio streams normalized samples to Deepgram as 16-bit PCM
func (d *DeepgramClient) SendAudio(samples []float32) error {
	err := d.circuitBreaker.Execute(func() error {
		d.mu.RLock()
		active := d.isActive
		client := d.client
		d.mu.RUnlock()

		if !active || client == nil {
			return fmt.Errorf("deepgram client is not active")
		}

		if _, err := client.Write(audio.Float32ToPCM16(samples)); err != nil {
			d.mu.Lock()
			d.isActive = false
			d.mu.Unlock()
			go d.attemptReconnect()
			return fmt.Errorf("failed to send audio to Deepgram: %w", err)
		}
		return nil
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.State()))
	if err != nil {
		observability.RecordError("send", "deepgram")
	}
	return err
}

// attemptReconnect reopens the session with exponential backoff
func (d *DeepgramClient) attemptReconnect() {
	select {
	case <-d.ctx.Done():
		return
	default:
	}

	d.mu.RLock()
	alreadyActive := d.isActive
	d.mu.RUnlock()
	if alreadyActive {
		return
	}

	reconnectConfig := &resilience.ReconnectConfig{
		MaxAttempts: d.config.ReconnectMaxAttempts,
		Backoff:     time.Duration(d.config.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}

	if err := resilience.Reconnect(d.ctx, d.logger, d.connect, reconnectConfig); err != nil {
		d.logger.Error().Err(err).Msg("Failed to reconnect Deepgram client")
	}
}

// Results returns a channel that receives transcription results
func (d *DeepgramClient) Results() <-chan *TranscriptionResult {
	return d.results
}

// Close finishes the session and stops reconnection attempts.
// The results channel is left open; consumers stop on their own context.
func (d *DeepgramClient) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	if !d.isActive {
		return nil
	}
	d.client.Finish()
	d.isActive = false
	d.logger.Info().Msg("Deepgram streaming client stopped")
	return nil
}

// IsActive returns whether the client is currently connected
func (d *DeepgramClient) IsActive() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isActive
}
