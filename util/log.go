package util

import (
	"context"
	"io"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const (
	// SessionKey carries the install session id of a log entry
	SessionKey contextKey = "session"
	// SourceKey carries the descriptor URL the session polls
	SourceKey contextKey = "source"
)

// InitLog parses and sets log-level input
func InitLog(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return err
	}

	if logPath != "" && logPath != "console" {
		lumberjackLogger := &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(io.Writer(lumberjackLogger))
	}

	log.SetFormatter(&CustomFormatter{})
	log.SetLevel(level)
	return nil
}

// WithSession returns a context whose log entries carry the session id and descriptor URL
func WithSession(ctx context.Context, session, source string) context.Context {
	ctx = context.WithValue(ctx, SessionKey, session)
	return context.WithValue(ctx, SourceKey, source)
}

// CustomFormatter formats the log message as required
type CustomFormatter struct {
	log.TextFormatter
}

func (f *CustomFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Context == nil {
		return f.TextFormatter.Format(entry)
	}

	if session, ok := entry.Context.Value(SessionKey).(string); ok {
		entry.Data["session"] = session
	}
	if source, ok := entry.Context.Value(SourceKey).(string); ok {
		entry.Data["source"] = source
	}

	return f.TextFormatter.Format(entry)
}
