// Package logging configures the logrus logger shared by the commands.
//
// stdout carries the MCP protocol for plate-mcp, so every logger built here
// writes to stderr.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger for the named component at the given level.
//
// Recognised levels are the logrus names (debug, info, warn, error). An empty
// or unknown level falls back to info.
func New(component, level string) *logrus.Entry {
	return NewWithOutput(os.Stderr, component, level)
}

// NewWithOutput is New with an explicit destination, used by tests.
func NewWithOutput(w io.Writer, component, level string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(ParseLevel(level))

	return logger.WithField("component", component)
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
