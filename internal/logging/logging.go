// Package logging builds the agent's logrus loggers. Every logger masks
// credentials before a line is written.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to stderr with the given level and format
// ("json" or "text"). Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(os.Stderr, level, format)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(w io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	var inner logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if strings.EqualFold(format, "json") {
		inner = &logrus.JSONFormatter{}
	}
	logger.SetFormatter(&MaskingFormatter{Inner: inner})
	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Discard returns an entry that drops everything. Used when no logger is injected.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// MaskingFormatter masks the message and field values before delegating.
type MaskingFormatter struct {
	Inner logrus.Formatter
}

// Format implements logrus.Formatter.
func (f *MaskingFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	clone := *entry
	clone.Message = MaskSensitive(entry.Message)
	clone.Data = make(logrus.Fields, len(entry.Data))
	for k, v := range entry.Data {
		clone.Data[k] = maskField(k, v)
	}
	return f.Inner.Format(&clone)
}

func maskField(key string, v any) any {
	switch strings.ToLower(key) {
	case "password":
		if s, ok := v.(string); ok {
			return MaskPassword(s)
		}
		return "***"
	case "token", "authtoken", "auth_token", "access_token":
		if s, ok := v.(string); ok {
			return MaskToken(s)
		}
		return "***"
	case "email", "user_email":
		if s, ok := v.(string); ok {
			return MaskEmail(s)
		}
		return "***@***"
	}

	switch val := v.(type) {
	case string:
		return MaskSensitive(val)
	case error:
		return MaskSensitive(val.Error())
	default:
		return v
	}
}
