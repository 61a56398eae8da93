// Package logging wraps a package-level zap singleton: an unexported
// instance behind a mutex-free atomic pointer, initialized once, with
// exported functions that forward to it so callers never hold a
// *zap.Logger themselves.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Pointer[zap.Logger]

func init() {
	l, _ := zap.NewProduction()
	global.Store(l)
}

// Init replaces the global logger, e.g. with a development config for
// human-readable console output.
func Init(l *zap.Logger) {
	global.Store(l)
}

// L returns the current global logger.
func L() *zap.Logger {
	return global.Load()
}

// Sync flushes any buffered log entries. Call this once, at shutdown.
func Sync() error {
	return global.Load().Sync()
}

// ForChain returns a logger tagged with the given chain id, for use in any
// code path scoped to one chain.
func ForChain(chainID string) *zap.Logger {
	return L().With(zap.String("chain_id", chainID))
}

// ForObject returns a logger tagged with the given object's short name.
func ForObject(shortName string) *zap.Logger {
	return L().With(zap.String("object", shortName))
}
