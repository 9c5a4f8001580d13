package stt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAITranscriber(t *testing.T) {
	var gotPath, gotModel, gotLanguage string
	var gotFile []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Expected multipart request: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		if f, _, err := r.FormFile("file"); err == nil {
			gotFile, _ = io.ReadAll(f)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello from whisper"}`))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	tr := NewOpenAITranscriber(openai.NewClientWithConfig(cfg), "", "en")

	text, err := tr.Transcribe(context.Background(), make([]float32, 160), 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello from whisper" {
		t.Errorf("Expected transcription text, got %q", text)
	}
	if gotPath != "/v1/audio/transcriptions" {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotModel != openai.Whisper1 || gotLanguage != "en" {
		t.Errorf("Unexpected model/language %q/%q", gotModel, gotLanguage)
	}
	if len(gotFile) != 44+320 || string(gotFile[:4]) != "RIFF" {
		t.Errorf("Expected a WAV upload of %d bytes, got %d", 44+320, len(gotFile))
	}
}

func TestOpenAITranscriber_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	tr := NewOpenAITranscriber(openai.NewClientWithConfig(cfg), "", "")

	if _, err := tr.Transcribe(context.Background(), make([]float32, 16), 16000); err == nil {
		t.Error("Expected error from failing server")
	}
}

func TestHTTPTranscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var samples []float32
		if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
			t.Errorf("Expected JSON samples: %v", err)
		}
		if len(samples) != 4 {
			t.Errorf("Expected 4 samples, got %d", len(samples))
		}
		if r.Header.Get("X-Sample-Rate") != "16000" {
			t.Errorf("Expected sample rate header, got %q", r.Header.Get("X-Sample-Rate"))
		}
		w.Write([]byte(`{"language":"en","segments":[{"text":" first part"},{"text":"second part "}]}`))
	}))
	defer server.Close()

	tr, err := NewHTTPTranscriber(server.URL)
	if err != nil {
		t.Fatalf("NewHTTPTranscriber failed: %v", err)
	}
	text, err := tr.Transcribe(context.Background(), []float32{0, 0.1, 0.2, 0.3}, 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "first part second part" {
		t.Errorf("Expected joined segments, got %q", text)
	}
}

func TestHTTPTranscriber_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr, _ := NewHTTPTranscriber(server.URL)
	_, err := tr.Transcribe(context.Background(), []float32{0}, 16000)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected status error, got %v", err)
	}

	if _, err := NewHTTPTranscriber(""); err == nil {
		t.Error("Expected error for empty url")
	}
}

func TestStubTranscriber(t *testing.T) {
	text, err := StubTranscriber{}.Transcribe(context.Background(), make([]float32, 32000), 16000)
	if err != nil || text != "[speech 2.0s]" {
		t.Errorf("Expected '[speech 2.0s]', got %q (%v)", text, err)
	}
}
