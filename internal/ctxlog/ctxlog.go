// Package ctxlog provides context keys for safely passing a slog.Logger and
// the command echo switch through context.Context.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key int

const (
	loggerKey key = iota
	echoKey
)

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. A missing logger is a
// wiring mistake and panics.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	panic("ctxlog: logger missing from context")
}

// WithCommandEcho enables or disables logging of every external command
// before it is spawned.
func WithCommandEcho(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, echoKey, enabled)
}

// CommandEcho reports whether commands should be echoed.
func CommandEcho(ctx context.Context) bool {
	enabled, _ := ctx.Value(echoKey).(bool)
	return enabled
}

// Command logs cmd at info level when command echo is enabled.
func Command(ctx context.Context, cmd string, args ...any) {
	if !CommandEcho(ctx) {
		return
	}
	FromContext(ctx).Info("Executing command.", append([]any{"command", cmd}, args...)...)
}
