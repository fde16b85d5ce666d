package config

import (
	"io"

	"github.com/phuslu/log"
)

// NewLogger creates a logger writing to w, as colored text for the "text"
// format and as JSON lines otherwise.
func NewLogger(cfg LoggingConfig, w io.Writer) *log.Logger {
	level := log.ParseLevel(cfg.Level)
	if cfg.Level == "" {
		level = log.WarnLevel
	}
	logger := &log.Logger{Level: level, Writer: &log.IOWriter{Writer: w}}
	if cfg.Format == "text" {
		logger.Writer = &log.ConsoleWriter{Writer: w, ColorOutput: false, QuoteString: true}
	}
	return logger
}
