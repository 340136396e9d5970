// backend-go/pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Log is the shared logger for the dashboard binaries. Output is a colored
// console writer unless LOG_FORMAT=json selects plain JSON lines.
var Log zerolog.Logger

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = zerolog.New(outputFromEnv()).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Caller().
		Logger()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		SetLevel(level)
	}
}

func outputFromEnv() io.Writer {
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

// SetLevel parses levelStr and applies it globally. Unknown levels fall back
// to info.
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
}
