// Package common holds small sentinel errors and helpers shared across
// the relayer's packages: package-level sentinels rather than typed error
// hierarchies for the simple, ubiquitous cases.
package common

import "errors"

var (
	// ErrNilPointer is returned by methods invoked on a nil receiver where a
	// nil receiver cannot sensibly service the call.
	ErrNilPointer = errors.New("nil pointer")
	// ErrNotYetImplemented marks a documented but unimplemented code path.
	ErrNotYetImplemented = errors.New("not yet implemented")
	// ErrSubSystemNotStarted is returned when an operation requires a
	// subsystem manager to be running.
	ErrSubSystemNotStarted = errors.New("subsystem not started")
	// ErrSubSystemAlreadyStarted is returned when a subsystem is started a
	// second time (e.g. rest.Server.Serve called twice).
	ErrSubSystemAlreadyStarted = errors.New("subsystem already started")
)

// IsEnabled renders a bool as the word a log line or CLI table wants.
func IsEnabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}
