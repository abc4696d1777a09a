// Package logging defines the structured-logging interface used across the
// server and the CLI, with a log/slog implementation and a discarding one.
package logging

import "context"

// Logger is a context-aware, structured logger. args are key/value pairs:
//
//	log.Warn(ctx, "validate failed", "kind", "expired_token", "subject", id)
type Logger interface {
	// Debug logs per-request detail, off at the default level.
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

type discard struct{}

func (discard) Debug(context.Context, string, ...any) {}
func (discard) Info(context.Context, string, ...any)  {}
func (discard) Warn(context.Context, string, ...any)  {}
func (discard) Error(context.Context, string, ...any) {}
func (d discard) With(...any) Logger                  { return d }

// Nop returns a Logger that drops everything.
func Nop() Logger { return discard{} }
