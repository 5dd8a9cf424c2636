// Package logger holds the engine-wide structured logger.
//
// Every package in the engine logs through L(). The default logger discards everything, so a host
// application opts in by calling SetLogger with its own *zap.Logger (or New for a console logger).
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// SetLogger replaces the engine logger. Passing nil restores the no-op logger.
//
// Parameters:
//   - l: the logger to use for all subsequent engine logging
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// L returns the current engine logger. It is never nil.
//
// Returns:
//   - *zap.Logger: the active logger
func L() *zap.Logger {
	return current.Load()
}

// New builds a console logger at the given level name ("debug", "info", "warn", "error").
// Unknown level names fall back to info.
//
// Parameters:
//   - level: the minimum level to emit
//
// Returns:
//   - *zap.Logger: the configured logger
//   - error: an error if the zap configuration could not be built
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}
