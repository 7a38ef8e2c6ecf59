// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config selects level, format and destination.  An empty File logs to
// stdout; otherwise output goes to both.
type Config struct {
	Level  string
	Format string // text | json
	File   string
}

// New returns a configured logger.  An unparsable level falls back to
// info.  A log file that cannot be opened is reported on the returned
// logger and stdout is used alone.
func New(cfg Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.File != "" {
		f, err := openAppend(cfg.File)
		if err != nil {
			log.WithError(err).WithField("file", cfg.File).Warn("cannot open log file, logging to stdout only")
			return log
		}
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}
	return log
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
