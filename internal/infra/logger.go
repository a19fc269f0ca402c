package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "lucidify"

// NewLogger returns the process logger. Every line carries service=lucidify;
// jobs add job_id and request_id on top. LOG_LEVEL overrides the level picked
// from APP_ENV.
func NewLogger(cfg *Config) zerolog.Logger {
	return newLogger(os.Stdout, cfg.AppEnv, cfg.LogLevel)
}

func newLogger(out io.Writer, appEnv, levelName string) zerolog.Logger {
	dev := appEnv == "development"
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(levelName); err == nil && levelName != "" {
		level = parsed
	}
	if dev {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Logger is what components accept; a nil *Logger means discard.
type Logger = zerolog.Logger
