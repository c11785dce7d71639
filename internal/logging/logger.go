// Package logging provides structured logging on top of logf.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
)

// Field holds data of a specific field.
type Field = logf.Field

// Level is a logging severity.
type Level = logf.Level

var (
	String   = logf.String
	Strings  = logf.Strings
	Int      = logf.Int
	Int64    = logf.Int64
	Bool     = logf.Bool
	Duration = logf.Duration
	Time     = logf.Time
	Any      = logf.Any
	Error    = logf.Error
)

// CloseFunc flushes and closes the asynchronous log writer.
type CloseFunc func()

// FieldLogger writes logs in structured format.
type FieldLogger interface {
	With(...Field) FieldLogger

	Debug(string, ...Field)
	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)

	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})
}

// Config selects the level and output format of a logger.
type Config struct {
	Level  string
	Format string
}

// LogfAdapter adapts logf.Logger to the FieldLogger interface.
type LogfAdapter struct {
	Logger *logf.Logger
}

// NewDisabledLogger returns a logger that logs nothing.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{Logger: logf.NewDisabledLogger()}
}

// NewLogger returns a logger writing to stdout.
func NewLogger(cfg Config) (FieldLogger, CloseFunc) {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter returns a logger writing to w. Entries are written asynchronously,
// the returned CloseFunc must be called before exit to flush them.
func NewLoggerWithWriter(cfg Config, w io.Writer) (FieldLogger, CloseFunc) {
	channel, closeFunc := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          makeAppender(cfg, w),
		EnableSyncOnError: true,
	})
	logger := logf.NewLogger(ParseLevel(cfg.Level), channel).With(logf.Int("pid", os.Getpid()))
	return &LogfAdapter{Logger: logger}, CloseFunc(closeFunc)
}

func makeAppender(cfg Config, w io.Writer) logf.Appender {
	if cfg.Format == "text" {
		noColor := true
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:    &noColor,
			EncodeTime: logf.RFC3339NanoTimeEncoder,
		})
	}
	return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
		FieldKeyTime: "time",
	}))
}

// ParseLevel converts a textual level to a logf level. Unknown values mean "info".
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return logf.LevelDebug
	case "warn", "warning":
		return logf.LevelWarn
	case "error":
		return logf.LevelError
	}
	return logf.LevelInfo
}

func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.With(fs...)}
}

func (l *LogfAdapter) Debug(s string, fields ...Field) {
	l.Logger.Debug(s, fields...)
}

func (l *LogfAdapter) Info(s string, fields ...Field) {
	l.Logger.Info(s, fields...)
}

func (l *LogfAdapter) Warn(s string, fields ...Field) {
	l.Logger.Warn(s, fields...)
}

func (l *LogfAdapter) Error(s string, fields ...Field) {
	l.Logger.Error(s, fields...)
}

func (l *LogfAdapter) Infof(format string, args ...interface{}) {
	l.logf(logf.LevelInfo, format, args...)
}

func (l *LogfAdapter) Warnf(format string, args ...interface{}) {
	l.logf(logf.LevelWarn, format, args...)
}

func (l *LogfAdapter) Errorf(format string, args ...interface{}) {
	l.logf(logf.LevelError, format, args...)
}

func (l *LogfAdapter) logf(level Level, format string, args ...interface{}) {
	l.Logger.AtLevel(level, func(write logf.LogFunc) {
		write(fmt.Sprintf(format, args...))
	})
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) FieldLogger {
	if logger, ok := ctx.Value(ctxKey{}).(FieldLogger); ok {
		return logger
	}
	return NewDisabledLogger()
}
