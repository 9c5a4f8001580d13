package capture

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Capture clients run on the operator's own machine
		return true
	},
	ReadBufferSize:  8192,
	WriteBufferSize: 1024,
}

// WebSocketSource accepts binary messages of 16-bit little-endian mono PCM at
// the configured sample rate from a single client.
type WebSocketSource struct {
	streamBase
	frameSize int
	logger    zerolog.Logger
}

// NewWebSocketSource creates a WebSocket capture source
func NewWebSocketSource(frameSize int, logger zerolog.Logger) *WebSocketSource {
	return &WebSocketSource{frameSize: frameSize, logger: logger}
}

// Run implements Source
func (s *WebSocketSource) Run(ctx context.Context, emit Emit) error {
	return s.run(ctx, emit)
}

// Handler upgrades the request and streams its audio into the pipeline
func (s *WebSocketSource) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}
		defer conn.Close()

		emit, err := s.acquire(conn)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Rejecting audio stream")
			code := websocket.CloseTryAgainLater
			if errors.Is(err, ErrSourceBusy) {
				code = websocket.ClosePolicyViolation
			}
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()))
			return
		}
		defer s.release(conn)

		logger := s.logger.With().Str("client_id", observability.NewSessionID()).Logger()
		logger.Info().Str("remote", r.RemoteAddr).Msg("Audio stream connected")

		dec := newPCMDecoder(s.frameSize)
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn().Err(err).Msg("WebSocket read error")
				}
				break
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			for _, f := range dec.decode(data) {
				emit(f)
			}
		}
		logger.Info().Msg("Audio stream disconnected")
	}
}
