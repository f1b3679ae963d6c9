package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// LogLevel is the minimum severity a Logger writes.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var slogLevels = map[LogLevel]slog.Level{
	DebugLevel: slog.LevelDebug,
	InfoLevel:  slog.LevelInfo,
	WarnLevel:  slog.LevelWarn,
	ErrorLevel: slog.LevelError,
}

func (l LogLevel) slogLevel() slog.Level {
	if level, ok := slogLevels[l]; ok {
		return level
	}
	return slog.LevelInfo
}

// String returns the level name as it appears in log entries.
func (l LogLevel) String() string {
	return l.slogLevel().String()
}

// ParseLogLevel maps "debug", "info", "warn"/"warning" and "error" (any case) to a
// LogLevel. Anything else is InfoLevel.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes JSON log entries through slog. Derived loggers share the handler and
// carry their fields.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a JSON logger writing entries at level or above to output
// (stdout when nil).
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{logger: slog.New(handler)}
}

// NopLogger returns a logger that discards everything. Components default to it when no
// logger is supplied.
func NopLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithField returns a logger that adds key to every entry.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithFields returns a logger that adds every field, in key order.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

// WithError adds err under "error". A nil err returns l.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) log(level slog.Level, msg string) {
	l.logger.Log(context.Background(), level, msg)
}

func (l *Logger) logf(level slog.Level, format string, args []interface{}) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}
	l.log(level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(message string) { l.log(slog.LevelDebug, message) }
func (l *Logger) Info(message string)  { l.log(slog.LevelInfo, message) }
func (l *Logger) Warn(message string)  { l.log(slog.LevelWarn, message) }
func (l *Logger) Error(message string) { l.log(slog.LevelError, message) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(slog.LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(slog.LevelInfo, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(slog.LevelWarn, format, args) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(slog.LevelError, format, args) }

type ctxKey int

const (
	requestIDKey ctxKey = iota
	localeKey
	loggerKey
)

func stringValue(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithRequestID stores the request id served by ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request id of ctx, or "".
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithLocale stores the negotiated translation locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

// GetLocale returns the negotiated locale of ctx, or "" for the default.
func GetLocale(ctx context.Context) string {
	return stringValue(ctx, localeKey)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger returns the logger stored in ctx, or an info-level stdout logger.
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok && logger != nil {
		return logger
	}
	return NewLogger(InfoLevel, os.Stdout)
}

// FromContext returns the context logger tagged with the request id and locale.
func FromContext(ctx context.Context) *Logger {
	logger := GetLogger(ctx)

	var args []any
	if requestID := GetRequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if locale := GetLocale(ctx); locale != "" {
		args = append(args, "locale", locale)
	}
	if len(args) == 0 {
		return logger
	}
	return logger.with(args...)
}
