// Package registry holds the relayer's live set of chain.Handle
// instances and spawns new ones on demand, deduplicating concurrent
// spawn requests for the same chain: one RWMutex-guarded map plus a
// constructor that's safe to call from many goroutines at once.
package registry

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/relaygo/relayer/chain"
	"github.com/relaygo/relayer/config"
	"github.com/relaygo/relayer/ibc"
)

// ErrUnknownChain is returned when a caller asks for a chain the registry
// has no configuration for.
var ErrUnknownChain = errors.New("registry: unknown chain")

// Registry is a ref-counted, lazily-populated map of ibc.ChainID to
// chain.Handle.
type Registry struct {
	factory chain.Factory
	configs map[ibc.ChainID]config.ChainConfig

	mu      sync.RWMutex
	handles map[ibc.ChainID]chain.Handle

	group singleflight.Group
}

// New builds a Registry over the given chain configs. factory is invoked
// at most once per chain at any given time, however many goroutines race
// to spawn it.
func New(configs map[ibc.ChainID]config.ChainConfig, factory chain.Factory) *Registry {
	return &Registry{
		factory: factory,
		configs: configs,
		handles: make(map[ibc.ChainID]chain.Handle),
	}
}

// GetOrSpawn returns the live handle for id, spawning one via the
// factory if none exists yet. Concurrent callers asking for the same id
// that hasn't been spawned yet share a single factory call.
func (r *Registry) GetOrSpawn(ctx context.Context, id ibc.ChainID) (chain.Handle, error) {
	r.mu.RLock()
	h, ok := r.handles[id]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	cfg, ok := r.configs[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownChain, "%s", id)
	}

	v, err, _ := r.group.Do(string(id), func() (interface{}, error) {
		r.mu.RLock()
		if h, ok := r.handles[id]; ok {
			r.mu.RUnlock()
			return h, nil
		}
		r.mu.RUnlock()

		h, err := r.factory(ctx, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "registry: spawning %s", id)
		}

		r.mu.Lock()
		r.handles[id] = h
		r.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(chain.Handle), nil
}

// Shutdown tears down every spawned handle and clears the registry.
// Errors from individual handles are collected, not short-circuited, so
// one stuck chain doesn't stop the others from shutting down.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[ibc.ChainID]chain.Handle)
	r.mu.Unlock()

	var errs []error
	for id, h := range handles {
		if err := h.Shutdown(); err != nil {
			errs = append(errs, errors.Wrapf(err, "registry: shutting down %s", id))
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("registry: %d handle(s) failed to shut down: %v", len(errs), errs)
	}
	return nil
}

// Chains returns the ids of every chain currently spawned.
func (r *Registry) Chains() []ibc.ChainID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ibc.ChainID, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of spawned handles.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Contains reports whether id has already been spawned.
func (r *Registry) Contains(id ibc.ChainID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[id]
	return ok
}

// Get returns the handle for id if it has already been spawned, without
// triggering a spawn.
func (r *Registry) Get(id ibc.ChainID) (chain.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// AddConfig registers (or replaces) the configuration for a chain so a
// later GetOrSpawn can succeed for it. It does not itself spawn a handle.
func (r *Registry) AddConfig(cfg config.ChainConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.ID] = cfg
}

// RemoveConfig drops a chain's configuration and, if spawned, shuts down
// and removes its handle.
func (r *Registry) RemoveConfig(id ibc.ChainID) error {
	r.mu.Lock()
	delete(r.configs, id)
	h, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return h.Shutdown()
}
