// Package log configures slog for the binaries and adds a component-tagged logger.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger wraps slog.Logger and tags every record with a component.
type Logger struct {
	*slog.Logger
	base *slog.Logger // without the component attribute
}

type Config struct {
	Level     slog.Level
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// New builds a text-handler logger unless cfg.Handler is set.
func New(cfg Config) *Logger {
	handler := cfg.Handler
	if handler == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	}
	component := cfg.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger: base.With(FieldComponent, component),
		base:   base,
	}
}

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger tagged with another component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.base.With(FieldComponent, component),
		base:   l.base,
	}
}

// LogError logs err with the component and operation attached.
func (l *Logger) LogError(ctx context.Context, msg string, err error, op string, fields Fields) {
	if fields == nil {
		fields = NewFields()
	}
	l.Logger.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(op).ToSlice()...)
}

var defaultLogger atomic.Pointer[Logger]

// SetDefault installs l as the process-wide slog default.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
	slog.SetDefault(l.Logger)
}

// Default returns the logger installed by SetDefault, or one over slog's
// default handler when none was installed.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	base := slog.Default()
	return &Logger{
		Logger: base.With(FieldComponent, ComponentApp),
		base:   base,
	}
}

// For returns the default logger tagged with component.
func For(component string) *Logger {
	return Default().WithComponent(component)
}
