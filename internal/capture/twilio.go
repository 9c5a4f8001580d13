package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/audio"
	"github.com/lexiqai/live-transcriber/internal/observability"
)

// twilioSampleRate is the fixed rate of Twilio Media Streams (G.711 μ-law)
const twilioSampleRate = 8000

// TwilioMessage represents a message from Twilio Media Streams
type TwilioMessage struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid,omitempty"`
	Media     *TwilioMedia `json:"media,omitempty"`
	Start     *TwilioStart `json:"start,omitempty"`
}

// TwilioMedia represents the media payload in a media event
type TwilioMedia struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"` // Base64 encoded μ-law audio
}

// TwilioStart represents the start event payload
type TwilioStart struct {
	AccountSid       string            `json:"accountSid"`
	CallSid          string            `json:"callSid"`
	StreamSid        string            `json:"streamSid"`
	Tracks           []string          `json:"tracks"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// TwilioSource ingests a Twilio Media Stream: base64 μ-law at 8kHz is decoded
// and resampled to the pipeline rate. Translated speech can be played back
// into the same call.
type TwilioSource struct {
	streamBase
	sampleRate int
	frameSize  int
	logger     zerolog.Logger

	callMu    sync.RWMutex
	conn      *websocket.Conn
	streamSid string
	writeMu   sync.Mutex
}

// NewTwilioSource creates a Twilio Media Streams capture source
func NewTwilioSource(sampleRate, frameSize int, logger zerolog.Logger) *TwilioSource {
	return &TwilioSource{sampleRate: sampleRate, frameSize: frameSize, logger: logger}
}

// Run implements Source
func (s *TwilioSource) Run(ctx context.Context, emit Emit) error {
	return s.run(ctx, emit)
}

// Handler is the Media Streams WebSocket endpoint
func (s *TwilioSource) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}
		defer conn.Close()

		emit, err := s.acquire(conn)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Rejecting Twilio stream")
			return
		}
		defer s.release(conn)

		s.callMu.Lock()
		s.conn = conn
		s.callMu.Unlock()
		defer func() {
			s.callMu.Lock()
			s.conn = nil
			s.streamSid = ""
			s.callMu.Unlock()
		}()

		s.serve(conn, emit)
	}
}

func (s *TwilioSource) serve(conn *websocket.Conn, emit Emit) {
	logger := s.logger.With().Str("client_id", observability.NewSessionID()).Logger()
	chunker := audio.NewChunker(s.frameSize)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg TwilioMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Error().Err(err).Msg("Failed to parse Twilio message")
			continue
		}

		switch msg.Event {
		case "connected":
			logger.Info().Msg("Twilio stream connected")

		case "start":
			streamSid := msg.StreamSid
			if msg.Start != nil {
				if streamSid == "" {
					streamSid = msg.Start.StreamSid
				}
				logger = logger.With().Str("call_sid", msg.Start.CallSid).Logger()
			}
			s.callMu.Lock()
			s.streamSid = streamSid
			s.callMu.Unlock()
			logger.Info().Str("stream_sid", streamSid).Msg("Call started")

		case "media":
			samples, err := decodeTwilioMedia(msg.Media, s.sampleRate)
			if err != nil {
				logger.Warn().Err(err).Msg("Dropping media event")
				continue
			}
			for _, f := range chunker.Push(samples) {
				emit(f)
			}

		case "stop":
			logger.Info().Msg("Call stopped")
			return

		case "mark", "dtmf":

		default:
			logger.Debug().Str("event", msg.Event).Msg("Unknown Twilio event")
		}
	}
}

// decodeTwilioMedia extracts normalized samples at sampleRate from a media event
func decodeTwilioMedia(media *TwilioMedia, sampleRate int) ([]float32, error) {
	if media == nil {
		return nil, errors.New("media event without payload")
	}
	if media.Track != "" && media.Track != "inbound" {
		return nil, fmt.Errorf("ignoring %s track", media.Track)
	}
	payload := media.Payload
	if payload == "" {
		payload = media.Chunk
	}
	if payload == "" {
		return nil, errors.New("media event missing payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return audio.Resample(audio.MulawToFloat32(data), twilioSampleRate, sampleRate), nil
}

// Play sends speech back into the active call
func (s *TwilioSource) Play(samples []float32, sampleRate int) error {
	s.callMu.RLock()
	conn := s.conn
	streamSid := s.streamSid
	s.callMu.RUnlock()

	if conn == nil || streamSid == "" {
		return errors.New("no active call")
	}

	payload := base64.StdEncoding.EncodeToString(audio.Float32ToMulaw(audio.Resample(samples, sampleRate, twilioSampleRate)))
	msg := TwilioMessage{
		Event:     "media",
		StreamSid: streamSid,
		Media:     &TwilioMedia{Payload: payload},
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(msg)
}
