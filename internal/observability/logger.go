package observability

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	globalLogger zerolog.Logger
	initOnce     sync.Once
)

// InitLogger initializes the global structured logger. Only the first call has an effect.
func InitLogger(level string, pretty bool) {
	initOnce.Do(func() {
		var out io.Writer = os.Stdout
		if pretty {
			// Pretty console output for development
			out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}
		zerolog.SetGlobalLevel(parseLevel(level))
		globalLogger = zerolog.New(out).With().Timestamp().Logger()
		log.Logger = globalLogger
	})
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	InitLogger("info", false)
	return globalLogger
}

// Component returns a logger tagged with the component name and session id.
func Component(name, sessionID string) zerolog.Logger {
	ctx := GetLogger().With().Str("component", name)
	if sessionID != "" {
		ctx = ctx.Str("session_id", sessionID)
	}
	return ctx.Logger()
}

// NewSessionID generates a new pipeline session id
func NewSessionID() string {
	return uuid.New().String()
}
