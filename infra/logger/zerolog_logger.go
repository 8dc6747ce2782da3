package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Settings controls the output of every logger created by New.
type Settings struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `json:"level"`
	// Format is "console" or "json". Empty selects console when APP_ENV=dev.
	Format string `json:"format"`
}

var (
	mu     sync.RWMutex
	output io.Writer = os.Stderr
	format string
)

// Configure installs the global level and format. Logs go to stderr so that
// reports written to stdout stay machine readable.
func Configure(s Settings) error {
	lvl := zerolog.InfoLevel
	if s.Level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", s.Level, err)
		}
	}
	switch s.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", s.Format)
	}
	zerolog.SetGlobalLevel(lvl)
	mu.Lock()
	format = s.Format
	mu.Unlock()
	return nil
}

// SetOutput redirects the output of loggers created afterwards. A nil writer
// restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	output = w
	mu.Unlock()
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger. All logs include the provided
// component field.
func NewZerologLogger(component string) Logger {
	mu.RLock()
	w, f := output, format
	mu.RUnlock()
	if f == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		f = "console"
	}
	if f == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
