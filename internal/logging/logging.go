// Package logging builds the structured logger shared by all components.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level and the optional rotating log file
type Config struct {
	Level      string
	File       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// New creates a logger writing to the console and, when File is set, to a
// rotating file.
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
}

// NewWithWriter is New with an explicit console writer
func NewWithWriter(cfg Config, console io.Writer) zerolog.Logger {
	writers := []io.Writer{console}

	var fileErr error
	if cfg.File != "" {
		if fileErr = os.MkdirAll(filepath.Dir(cfg.File), 0755); fileErr == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    orDefault(cfg.MaxSize, 100),
				MaxBackups: orDefault(cfg.MaxBackups, 7),
				MaxAge:     orDefault(cfg.MaxAge, 30),
				Compress:   true,
			})
		}
	}

	var w io.Writer = console
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(w).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("file", cfg.File).Msg("Log file disabled, logging to console only")
	}
	return logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
