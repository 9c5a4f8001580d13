package config

import (
	"os"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	t.Cleanup(func() { os.Unsetenv("OPENAI_API_KEY") })
}

func TestLoad(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("OPENAI_API_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when the openai provider has no API key")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}
	if cfg.SegmentationMode != ModeSilence {
		t.Errorf("Expected default SegmentationMode '%s', got '%s'", ModeSilence, cfg.SegmentationMode)
	}
	if cfg.CaptureSource != SourceWebSocket {
		t.Errorf("Expected default CaptureSource '%s', got '%s'", SourceWebSocket, cfg.CaptureSource)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}
	if cfg.FrameSize != 1024 {
		t.Errorf("Expected default FrameSize 1024, got %d", cfg.FrameSize)
	}
	if cfg.SilenceThreshold != 0.01 {
		t.Errorf("Expected default SilenceThreshold 0.01, got %f", cfg.SilenceThreshold)
	}
	if cfg.SilenceDuration != 1.0 {
		t.Errorf("Expected default SilenceDuration 1.0, got %f", cfg.SilenceDuration)
	}
	if cfg.PhraseTimeout != 3.0 {
		t.Errorf("Expected default PhraseTimeout 3.0, got %f", cfg.PhraseTimeout)
	}
	if cfg.MaxWords != 100 {
		t.Errorf("Expected default MaxWords 100, got %d", cfg.MaxWords)
	}
	if cfg.FlushOnStop {
		t.Error("Expected default FlushOnStop false, got true")
	}
	if cfg.QueueCapacity != 0 {
		t.Errorf("Expected default QueueCapacity 0, got %d", cfg.QueueCapacity)
	}
	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}
	if cfg.TargetLanguage != "German" {
		t.Errorf("Expected default TargetLanguage 'German', got '%s'", cfg.TargetLanguage)
	}
}

func TestLoadFromEnv(t *testing.T) {
	setBaseEnv(t)
	os.Setenv("SEGMENTATION_MODE", "Phrase")
	os.Setenv("PHRASE_TIMEOUT", "2.5")
	defer os.Unsetenv("SEGMENTATION_MODE")
	defer os.Unsetenv("PHRASE_TIMEOUT")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.SegmentationMode != ModePhrase {
		t.Errorf("Expected normalized SegmentationMode '%s', got '%s'", ModePhrase, cfg.SegmentationMode)
	}
	if cfg.PhraseTimeoutDuration() != 2500*time.Millisecond {
		t.Errorf("Expected phrase timeout 2.5s, got %v", cfg.PhraseTimeoutDuration())
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_DerivedSizes(t *testing.T) {
	cfg := &Config{SampleRate: 16000, SilenceDuration: 1.5, MaxSegmentDuration: 3, TranscriptionTimeout: 10}

	if got := cfg.SilenceBufferSamples(); got != 24000 {
		t.Errorf("Expected 24000 silence samples, got %d", got)
	}
	if got := cfg.MaxSegmentSamples(); got != 48000 {
		t.Errorf("Expected 48000 max segment samples, got %d", got)
	}
	if got := cfg.TranscriptionTimeoutDuration(); got != 10*time.Second {
		t.Errorf("Expected 10s transcription timeout, got %v", got)
	}
}

func validConfig() Config {
	return Config{
		SegmentationMode: ModeSilence,
		CaptureSource:    SourceStdin,
		SampleRate:       16000,
		FrameSize:        512,
		SilenceThreshold: 0.01,
		SilenceDuration:  1,
		PhraseTimeout:    3,
		MaxWords:         100,
		STTProvider:      ProviderStub,
		MergeEngine:      MergeOverlap,
		OCRInterval:      2,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid stub", func(c *Config) {}, false},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero frame size", func(c *Config) { c.FrameSize = 0 }, true},
		{"threshold above one", func(c *Config) { c.SilenceThreshold = 1.5 }, true},
		{"zero silence duration", func(c *Config) { c.SilenceDuration = 0 }, true},
		{"zero max words", func(c *Config) { c.MaxWords = 0 }, true},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }, true},
		{"unknown mode", func(c *Config) { c.SegmentationMode = "vad" }, true},
		{"unknown source", func(c *Config) { c.CaptureSource = "alsa" }, true},
		{"http without url", func(c *Config) { c.STTProvider = ProviderHTTP }, true},
		{"http with url", func(c *Config) { c.STTProvider = ProviderHTTP; c.STTHTTPURL = "http://stt" }, false},
		{"stream without key", func(c *Config) { c.SegmentationMode = ModeStream }, true},
		{"stream with key", func(c *Config) { c.SegmentationMode = ModeStream; c.DeepgramAPIKey = "k" }, false},
		{"ocr without url", func(c *Config) { c.SegmentationMode = ModeOCR }, true},
		{"ocr ignores source", func(c *Config) { c.SegmentationMode = ModeOCR; c.OCRURL = "http://ocr"; c.CaptureSource = "" }, false},
		{"ocr openai merge without key", func(c *Config) {
			c.SegmentationMode = ModeOCR
			c.OCRURL = "http://ocr"
			c.MergeEngine = MergeOpenAI
		}, true},
		{"translation without key", func(c *Config) { c.TranslationEnabled = true }, true},
		{"tts without translation", func(c *Config) { c.TTSEnabled = true; c.CartesiaAPIKey = "k" }, true},
		{"tts with translation", func(c *Config) {
			c.TranslationEnabled = true
			c.OpenAIAPIKey = "k"
			c.TTSEnabled = true
			c.CartesiaAPIKey = "k"
		}, false},
		{"bad export extension", func(c *Config) { c.TranscriptOutput = "out.txt" }, true},
		{"markdown export", func(c *Config) { c.TranscriptOutput = "out.md" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}
	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.ReconnectBackoff != 1000 {
		t.Errorf("Expected default ReconnectBackoff 1000, got %d", cfg.ReconnectBackoff)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	setBaseEnv(t)
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}
