package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Segmentation modes
const (
	ModeSilence = "silence" // energy-gated segments, one final line per segment
	ModePhrase  = "phrase"  // batch recognizer, lines refined until the phrase timeout elapses
	ModeStream  = "stream"  // continuous Deepgram recognizer feeding the phrase tracker
	ModeOCR     = "ocr"     // caption text polled and merged into the rolling word buffer
)

// Capture sources
const (
	SourceStdin     = "stdin"
	SourceWebSocket = "websocket"
	SourceTwilio    = "twilio"
)

// Speech-to-text providers for the batch modes
const (
	ProviderOpenAI = "openai"
	ProviderHTTP   = "http"
	ProviderStub   = "stub"
)

// Merge engines for the rolling buffer
const (
	MergeOverlap = "overlap"
	MergeOpenAI  = "openai"
)

// Config holds all configuration for the transcriber service
type Config struct {
	// Server configuration
	Port     string `envconfig:"PORT" default:"8080"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"9090"` // "0" disables the gRPC health server

	// Pipeline shape
	SegmentationMode string `envconfig:"SEGMENTATION_MODE" default:"silence"` // silence, phrase, stream, ocr
	CaptureSource    string `envconfig:"CAPTURE_SOURCE" default:"websocket"`  // stdin, websocket, twilio

	// Audio processing configuration
	SampleRate         int     `envconfig:"SAMPLE_RATE" default:"16000"`       // Hz, mono
	FrameSize          int     `envconfig:"FRAME_SIZE" default:"1024"`         // Samples per frame
	SilenceThreshold   float64 `envconfig:"SILENCE_THRESHOLD" default:"0.01"`  // Mean absolute amplitude, normalized
	SilenceDuration    float64 `envconfig:"SILENCE_DURATION" default:"1.0"`    // Seconds of trailing silence closing a segment
	MaxSegmentDuration float64 `envconfig:"MAX_SEGMENT_DURATION" default:"0"`  // Seconds, 0 = unlimited
	PhraseTimeout      float64 `envconfig:"PHRASE_TIMEOUT" default:"3.0"`      // Seconds between arrivals of the same phrase
	MaxWords           int     `envconfig:"MAX_WORDS" default:"100"`           // Rolling buffer cap
	FlushOnStop        bool    `envconfig:"FLUSH_ON_STOP" default:"false"`     // Emit partial audio / finalize open line on shutdown
	QueueCapacity      int     `envconfig:"QUEUE_CAPACITY" default:"0"`        // 0 = unbounded

	// Per-call recognition deadline in seconds, 0 = none
	TranscriptionTimeout int `envconfig:"TRANSCRIPTION_TIMEOUT" default:"30"`

	// Batch speech-to-text configuration
	STTProvider string `envconfig:"STT_PROVIDER" default:"openai"` // openai, http, stub
	STTHTTPURL  string `envconfig:"STT_HTTP_URL" default:""`
	STTLanguage string `envconfig:"STT_LANGUAGE" default:"en"`

	// OpenAI (or Azure OpenAI) configuration
	OpenAIAPIKey             string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIAzureEndpoint      string `envconfig:"OPENAI_AZURE_ENDPOINT" default:""`
	OpenAIAPIVersion         string `envconfig:"OPENAI_API_VERSION" default:""`
	OpenAITranscriptionModel string `envconfig:"OPENAI_TRANSCRIPTION_MODEL" default:"whisper-1"`
	OpenAIChatModel          string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`

	// Deepgram streaming STT configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Translation and speech synthesis
	TranslationEnabled bool   `envconfig:"TRANSLATION_ENABLED" default:"false"`
	TargetLanguage     string `envconfig:"TARGET_LANGUAGE" default:"German"`
	TTSEnabled         bool   `envconfig:"TTS_ENABLED" default:"false"`
	CartesiaAPIKey     string `envconfig:"CARTESIA_API_KEY" default:""`
	CartesiaVoiceID    string `envconfig:"CARTESIA_VOICE_ID" default:"sonic-multilingual"`
	CartesiaModelID    string `envconfig:"CARTESIA_MODEL_ID" default:"sonic"`

	// Caption text capture (ocr mode)
	OCRURL      string `envconfig:"OCR_URL" default:""`
	OCRInterval int    `envconfig:"OCR_INTERVAL" default:"2"` // seconds
	MergeEngine string `envconfig:"MERGE_ENGINE" default:"overlap"`

	// Transcript export on shutdown (.md or .yaml)
	TranscriptOutput string `envconfig:"TRANSCRIPT_OUTPUT" default:""`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Translation and synthesis only
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"` // Milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot start with.
func (c *Config) Validate() error {
	c.SegmentationMode = strings.ToLower(strings.TrimSpace(c.SegmentationMode))
	c.CaptureSource = strings.ToLower(strings.TrimSpace(c.CaptureSource))
	c.STTProvider = strings.ToLower(strings.TrimSpace(c.STTProvider))
	c.MergeEngine = strings.ToLower(strings.TrimSpace(c.MergeEngine))

	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("FRAME_SIZE must be positive, got %d", c.FrameSize)
	}
	if c.SilenceThreshold <= 0 || c.SilenceThreshold > 1 {
		return fmt.Errorf("SILENCE_THRESHOLD must be in (0, 1], got %f", c.SilenceThreshold)
	}
	if c.SilenceDuration <= 0 {
		return fmt.Errorf("SILENCE_DURATION must be positive, got %f", c.SilenceDuration)
	}
	if c.MaxSegmentDuration < 0 {
		return fmt.Errorf("MAX_SEGMENT_DURATION must not be negative, got %f", c.MaxSegmentDuration)
	}
	if c.PhraseTimeout <= 0 {
		return fmt.Errorf("PHRASE_TIMEOUT must be positive, got %f", c.PhraseTimeout)
	}
	if c.MaxWords <= 0 {
		return fmt.Errorf("MAX_WORDS must be positive, got %d", c.MaxWords)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("QUEUE_CAPACITY must not be negative, got %d", c.QueueCapacity)
	}
	if c.TranscriptionTimeout < 0 {
		return fmt.Errorf("TRANSCRIPTION_TIMEOUT must not be negative, got %d", c.TranscriptionTimeout)
	}

	switch c.SegmentationMode {
	case ModeSilence, ModePhrase:
		if err := c.validateBatchProvider(); err != nil {
			return err
		}
	case ModeStream:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required in stream mode")
		}
	case ModeOCR:
		if c.OCRURL == "" {
			return fmt.Errorf("OCR_URL is required in ocr mode")
		}
		if c.OCRInterval <= 0 {
			return fmt.Errorf("OCR_INTERVAL must be positive, got %d", c.OCRInterval)
		}
		switch c.MergeEngine {
		case MergeOverlap:
		case MergeOpenAI:
			if c.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required for the openai merge engine")
			}
		default:
			return fmt.Errorf("unknown MERGE_ENGINE %q", c.MergeEngine)
		}
	default:
		return fmt.Errorf("unknown SEGMENTATION_MODE %q", c.SegmentationMode)
	}

	if c.SegmentationMode != ModeOCR {
		switch c.CaptureSource {
		case SourceStdin, SourceWebSocket, SourceTwilio:
		default:
			return fmt.Errorf("unknown CAPTURE_SOURCE %q", c.CaptureSource)
		}
	}

	if c.TranslationEnabled && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when translation is enabled")
	}
	if c.TTSEnabled {
		if !c.TranslationEnabled {
			return fmt.Errorf("TTS_ENABLED requires TRANSLATION_ENABLED")
		}
		if c.CartesiaAPIKey == "" {
			return fmt.Errorf("CARTESIA_API_KEY is required when TTS is enabled")
		}
	}

	if c.TranscriptOutput != "" {
		switch strings.ToLower(filepath.Ext(c.TranscriptOutput)) {
		case ".md", ".yaml", ".yml":
		default:
			return fmt.Errorf("TRANSCRIPT_OUTPUT must end in .md, .yaml or .yml, got %q", c.TranscriptOutput)
		}
	}
	return nil
}

func (c *Config) validateBatchProvider() error {
	switch c.STTProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai STT provider")
		}
	case ProviderHTTP:
		if c.STTHTTPURL == "" {
			return fmt.Errorf("STT_HTTP_URL is required for the http STT provider")
		}
	case ProviderStub:
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q", c.STTProvider)
	}
	return nil
}

// SilenceBufferSamples is the trailing-silence length, in samples, that closes a segment.
func (c *Config) SilenceBufferSamples() int {
	return int(c.SilenceDuration * float64(c.SampleRate))
}

// MaxSegmentSamples is the segment length cap in samples, 0 when uncapped.
func (c *Config) MaxSegmentSamples() int {
	return int(c.MaxSegmentDuration * float64(c.SampleRate))
}

// PhraseTimeoutDuration returns PHRASE_TIMEOUT as a time.Duration.
func (c *Config) PhraseTimeoutDuration() time.Duration {
	return time.Duration(c.PhraseTimeout * float64(time.Second))
}

// TranscriptionTimeoutDuration returns the per-call recognition deadline, 0 when disabled.
func (c *Config) TranscriptionTimeoutDuration() time.Duration {
	return time.Duration(c.TranscriptionTimeout) * time.Second
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
