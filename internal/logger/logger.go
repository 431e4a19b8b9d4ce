package logger

import (
	"io"

	"github.com/rpattn/memberimport/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with import specific field helpers.
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a structured logger from the logging config.
func NewLogger(cfg *config.Config) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logging.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return &Logger{Logger: log}
}

// Discard returns a logger that drops every entry. Used by tests and the CLI's quiet mode.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log}
}

// WithOrganization adds organization context to log entries
func (l *Logger) WithOrganization(orgID string) *logrus.Entry {
	return l.WithField("organization_id", orgID)
}

// WithImport adds import session context to log entries
func (l *Logger) WithImport(importID, catalog string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"import_id": importID,
		"catalog":   catalog,
	})
}
