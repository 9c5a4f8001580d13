package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/lexiqai/live-transcriber/internal/capture"
	"github.com/lexiqai/live-transcriber/internal/config"
	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/pipeline"
	"github.com/lexiqai/live-transcriber/internal/resilience"
	"github.com/lexiqai/live-transcriber/internal/sink"
	"github.com/lexiqai/live-transcriber/internal/stt"
	"github.com/lexiqai/live-transcriber/internal/transcript"
	"github.com/lexiqai/live-transcriber/internal/translate"
	"github.com/lexiqai/live-transcriber/internal/tts"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	sessionID := observability.NewSessionID()
	logger := observability.Component("transcriber", sessionID)

	logger.Info().
		Str("port", cfg.Port).
		Str("mode", cfg.SegmentationMode).
		Str("capture_source", cfg.CaptureSource).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Live Transcriber starting")

	mux := http.NewServeMux()

	var p *pipeline.Pipeline
	hub := sink.NewHub(func() transcript.Snapshot { return p.Transcript().Snapshot() }, observability.Component("hub", sessionID))

	deps, checks, err := buildDeps(cfg, mux, hub, sessionID)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up pipeline components")
	}
	deps.Sinks = append(deps.Sinks, hub, sink.NewConsoleSink(os.Stderr, false))

	p, err = pipeline.New(cfg, deps, observability.Component("pipeline", sessionID))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create pipeline")
	}
	checks["pipeline"] = func(ctx context.Context) (bool, error) {
		if err := p.Ready(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))
	mux.HandleFunc("/transcript", transcriptHandler(p.Transcript(), logger))
	mux.HandleFunc("/ws/transcript", hub.Handler())

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var grpcHealth *observability.GRPCHealth
	if cfg.GRPCPort != "" && cfg.GRPCPort != "0" {
		grpcHealth, err = observability.NewGRPCHealth(fmt.Sprintf(":%s", cfg.GRPCPort))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start gRPC health server")
		}
		go func() {
			if err := grpcHealth.Serve(); err != nil {
				logger.Error().Err(err).Msg("gRPC health server stopped")
			}
		}()
		logger.Info().Str("addr", grpcHealth.Addr().String()).Msg("gRPC health server listening")
	}

	if err := p.Start(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start pipeline")
	}
	if grpcHealth != nil {
		grpcHealth.SetServing(true)
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("transcript", fmt.Sprintf("ws://localhost:%s/ws/transcript", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal or the end of capture
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info().Msg("Shutting down...")
	case <-p.Done():
		if err := p.Err(); err != nil {
			logger.Error().Err(err).Msg("Capture failed, shutting down")
		} else {
			logger.Info().Msg("Capture finished, shutting down")
		}
	}

	if grpcHealth != nil {
		grpcHealth.SetServing(false)
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("Pipeline did not stop cleanly")
	}
	hub.Close()

	if cfg.TranscriptOutput != "" {
		if err := transcript.ExportFile(cfg.TranscriptOutput, p.Transcript().Snapshot()); err != nil {
			logger.Error().Err(err).Str("path", cfg.TranscriptOutput).Msg("Failed to export transcript")
		} else {
			logger.Info().Str("path", cfg.TranscriptOutput).Msg("Transcript exported")
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if grpcHealth != nil {
		grpcHealth.Stop()
	}

	logger.Info().Int("lines", p.Transcript().Len()).Msg("Transcriber exited gracefully")
	if p.Err() != nil {
		os.Exit(1)
	}
}

// buildDeps constructs the collaborators for the configured mode and registers
// the capture endpoints on mux.
func buildDeps(cfg *config.Config, mux *http.ServeMux, hub *sink.Hub, sessionID string) (pipeline.Deps, map[string]observability.HealthCheckFunc, error) {
	var deps pipeline.Deps
	checks := make(map[string]observability.HealthCheckFunc)

	var client *openai.Client
	if cfg.OpenAIAPIKey != "" {
		client = newOpenAIClient(cfg)
	}

	switch cfg.SegmentationMode {
	case config.ModeSilence, config.ModePhrase:
		engine, err := newBatchEngine(cfg, client)
		if err != nil {
			return deps, nil, err
		}
		deps.Engine = engine
		deps.Breaker = resilience.NewCircuitBreaker(
			"stt",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		)
		checks["stt"] = breakerCheck(deps.Breaker)

	case config.ModeStream:
		deepgram := stt.NewDeepgramClient(cfg, observability.Component("deepgram", sessionID))
		deps.Stream = deepgram
		checks["deepgram"] = func(ctx context.Context) (bool, error) {
			if !deepgram.IsActive() {
				return false, errors.New("deepgram stream is not connected")
			}
			return true, nil
		}

	case config.ModeOCR:
		deps.Captions = capture.NewCaptionPoller(cfg.OCRURL, time.Duration(cfg.OCRInterval)*time.Second, observability.Component("captions", sessionID))
		if cfg.MergeEngine == config.MergeOpenAI {
			deps.Merger = translate.NewOpenAIMerger(client, cfg.OpenAIChatModel)
		} else {
			deps.Merger = transcript.OverlapMerger{}
		}
	}

	if cfg.SegmentationMode != config.ModeOCR {
		captureLogger := observability.Component("capture", sessionID)
		switch cfg.CaptureSource {
		case config.SourceStdin:
			deps.Source = capture.NewReaderSource(os.Stdin, cfg.FrameSize, captureLogger)
		case config.SourceWebSocket:
			src := capture.NewWebSocketSource(cfg.FrameSize, captureLogger)
			mux.HandleFunc("/streams/audio", src.Handler())
			deps.Source = src
		case config.SourceTwilio:
			src := capture.NewTwilioSource(cfg.SampleRate, cfg.FrameSize, captureLogger)
			mux.HandleFunc("/streams/twilio", src.Handler())
			deps.Source = src
			deps.AudioSinks = append(deps.AudioSinks, func(chunk *tts.AudioChunk) {
				if err := src.Play(chunk.Samples, chunk.SampleRate); err != nil {
					captureLogger.Debug().Err(err).Msg("Translation not played into call")
				}
			})
		}
	}

	if cfg.TranslationEnabled {
		deps.Translator = translate.NewOpenAITranslator(client, cfg.OpenAIChatModel)
	}
	if cfg.TTSEnabled {
		deps.Synthesizer = tts.NewCartesiaClient(cfg, observability.Component("cartesia", sessionID))
		deps.AudioSinks = append(deps.AudioSinks, func(chunk *tts.AudioChunk) {
			hub.BroadcastAudio(chunk.Data)
		})
	}
	return deps, checks, nil
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	if cfg.OpenAIAzureEndpoint == "" {
		return openai.NewClient(cfg.OpenAIAPIKey)
	}
	clientConfig := openai.DefaultAzureConfig(cfg.OpenAIAPIKey, cfg.OpenAIAzureEndpoint)
	if cfg.OpenAIAPIVersion != "" {
		clientConfig.APIVersion = cfg.OpenAIAPIVersion
	}
	return openai.NewClientWithConfig(clientConfig)
}

func newBatchEngine(cfg *config.Config, client *openai.Client) (stt.Transcriber, error) {
	switch cfg.STTProvider {
	case config.ProviderOpenAI:
		return stt.NewOpenAITranscriber(client, cfg.OpenAITranscriptionModel, cfg.STTLanguage), nil
	case config.ProviderHTTP:
		return stt.NewHTTPTranscriber(cfg.STTHTTPURL)
	default:
		return stt.StubTranscriber{}, nil
	}
}

func breakerCheck(cb *resilience.CircuitBreaker) observability.HealthCheckFunc {
	return func(ctx context.Context) (bool, error) {
		if cb.State() == resilience.StateOpen {
			return false, fmt.Errorf("%s circuit breaker is open", cb.Name())
		}
		return true, nil
	}
}

// transcriptHandler serves the current lines and rolling buffer as JSON
func transcriptHandler(tr *transcript.Transcript, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tr.Snapshot()); err != nil {
			logger.Error().Err(err).Msg("Failed to encode transcript")
		}
	}
}
