package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"behaviorgate/internal/config"
)

// NewLogger constructs a zerolog logger from the server configuration.
// DEBUG_MODE forces debug level and caller annotations.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}
	if cfg.DebugMode {
		level = zerolog.DebugLevel
	}

	if strings.EqualFold(cfg.LogFormat, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	builder := zerolog.New(out).Level(level).With().Timestamp().Str("service", "behaviorgate")
	if cfg.DebugMode {
		builder = builder.Caller()
	}
	return builder.Logger()
}
