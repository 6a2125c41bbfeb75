package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// FieldComponent tags every log line with the component that wrote it
const FieldComponent = "component"

// New builds a zerolog.Logger from the logging configuration. Console
// output is used unless JSON is requested. When a file is configured, the
// returned closer must be closed on shutdown.
func New(cfg entities.LoggingConfig, stdout io.Writer) (zerolog.Logger, io.Closer, error) {
	var w io.Writer = stdout
	if !cfg.JSONFormat {
		w = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640) // #nosec G304 - path comes from validated config
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
		}
		w = zerolog.MultiLevelWriter(w, f)
		closer = f
	}

	logger := zerolog.New(w).Level(ParseLevel(cfg.GetLevel())).With().Timestamp().Logger()
	return logger, closer, nil
}

// BridgeStdlog routes the standard library logger through logger, so
// net/http server errors end up structured
func BridgeStdlog(logger zerolog.Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(logger.With().Str("source", "stdlog").Logger())
}

// ParseLevel maps a configured level to zerolog
func ParseLevel(level entities.LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str(FieldComponent, name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
