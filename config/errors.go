package config

import "errors"

var (
	// ErrNoPath is returned by Load when called with an empty path.
	ErrNoPath = errors.New("config: no path given")
	// ErrNoChains is returned by Load when the config registers zero
	// chains — a relayer with nothing to relay between is a startup
	// mistake, not a valid empty state.
	ErrNoChains = errors.New("config: no chains configured")
)
