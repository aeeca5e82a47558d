// Package logging holds the process-wide zerolog logger used by the
// compiler, the strategy scheduler and the graph store.
package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Logger is silent until SetGlobalLogger is called.
var Logger zerolog.Logger

func init() {
	SetGlobalLogger(zerolog.Nop())
}

// SetGlobalLogger replaces the package logger and makes it the fallback for
// contexts that carry no logger of their own.
func SetGlobalLogger(logger zerolog.Logger) {
	Logger = logger
	zerolog.DefaultContextLogger = &Logger
}

func Trace() *zerolog.Event { return Logger.Trace() }

func Debug() *zerolog.Event { return Logger.Debug() }

func Info() *zerolog.Event { return Logger.Info() }

func Warn() *zerolog.Event { return Logger.Warn() }

// Ctx returns the logger attached to ctx, or the package logger.
func Ctx(ctx context.Context) *zerolog.Logger { return zerolog.Ctx(ctx) }

// WithStrategy derives a logger that tags every event with a strategy name.
func WithStrategy(logger *zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("strategy", name).Logger()
}
