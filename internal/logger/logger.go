package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the JSON logger used by the server, the workers and the lambda.
func New() *logrus.Logger {
	return NewWithOutput(os.Stdout, os.Getenv("LOG_LEVEL"))
}

func NewWithOutput(w io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(ParseLevel(level))
	return l
}

func ParseLevel(v string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	return NewWithOutput(io.Discard, "error")
}
