// Package logging builds the logrus logger shared by the server, the engine
// and the evaluation CLI.
//
// Output goes to stderr because stdout carries the MCP protocol stream. An
// optional log file receives a copy of every entry.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options selects level and destinations.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, is appended to in addition to Output.
	File string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger configured from opts. A log file that cannot be opened
// is reported on the logger and otherwise ignored.
func New(opts Options) (*logrus.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.WithError(err).Warn("Failed to log to file, using stderr only")
		} else {
			log.SetOutput(io.MultiWriter(out, file))
		}
	}
	return log, nil
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	}
	return logrus.InfoLevel, errors.Errorf("unknown log level %q", s)
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
