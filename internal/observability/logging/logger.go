// Package logging provides the context-carried structured logger.
package logging

import (
	"context"
	"io"
	"os"
)

// Logger writes component logs and namespaced events
type Logger interface {
	Debug(component, msg string, fields ...any)
	Info(component, msg string, fields ...any)
	Warn(component, msg string, fields ...any)
	Error(component, msg string, fields ...any)
	Event(ctx context.Context, event string, fields map[string]any)
	Close() error
}

// EventPrefix namespaces every event name
const EventPrefix = "aerocheck."

type loggerKey struct{}

func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From returns the logger in ctx, or a no-op logger
func From(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return l
	}
	return &noopLogger{}
}

// NewLogger builds the logger named by cfg.Format. "pretty" discards
// everything so human output on stdout stays clean.
func NewLogger(cfg Config) (Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var w io.Writer
	var closer io.Closer
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}

	minLevel := levelPriority(cfg.Level)
	switch cfg.Format {
	case FormatJSONL:
		return &jsonlLogger{writer: w, closer: closer, minLevel: minLevel}, nil
	case FormatText:
		return &textLogger{writer: w, closer: closer, minLevel: minLevel}, nil
	default:
		return &noopLogger{closer: closer}, nil
	}
}

// collect pairs up key/value arguments; a dangling key is dropped
func collect(fields []any) map[string]any {
	if len(fields) < 2 {
		return nil
	}
	out := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			out[key] = fields[i+1]
		}
	}
	return out
}

type noopLogger struct {
	closer io.Closer
}

func (n *noopLogger) Debug(component, msg string, fields ...any) {}
func (n *noopLogger) Info(component, msg string, fields ...any)  {}
func (n *noopLogger) Warn(component, msg string, fields ...any)  {}
func (n *noopLogger) Error(component, msg string, fields ...any) {}
func (n *noopLogger) Event(ctx context.Context, event string, fields map[string]any) {
}
func (n *noopLogger) Close() error {
	if n.closer != nil {
		return n.closer.Close()
	}
	return nil
}
