package logger

import (
	"io"
	"os"
	"path/filepath"

	"smart-time-tracker/src/internal/config"

	"github.com/sirupsen/logrus"
)

// Init configures the standard logrus logger for the collector, which logs to stdout
// unless a log path is configured.
func Init(cfg *config.Configuration) {
	InitWithOutput(&cfg.Logs, os.Stdout)
}

// InitWithOutput configures the standard logger, writing to fallback when no log
// path is configured. The tracker passes stderr since stdout carries native messages.
func InitWithOutput(cfg *config.LogsSettings, fallback io.Writer) {
	level, levelErr := logrus.ParseLevel(cfg.Level)
	if levelErr != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.EnableJSONOutput {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logrus.SetOutput(fallback)
	if levelErr != nil {
		logrus.WithField("level", cfg.Level).Warn("Unknown log level, using info")
	}

	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			logrus.WithError(err).Warn("Failed to create log directory, logging to default output")
			return
		}
		file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logrus.WithError(err).Warn("Failed to open log file, logging to default output")
			return
		}
		logrus.SetOutput(io.MultiWriter(fallback, file))
	}
}
