package worker

import (
	"sync"

	"github.com/relaygo/relayer/ibc"
)

// Factory builds the Worker for a freshly admitted Object. Implementations
// live outside this package (in the workers package) so worker stays free
// of any domain logic.
type Factory func(obj ibc.Object) Worker

// Map is the relayer-wide table of live workers, keyed by Object.
type Map struct {
	mu      sync.RWMutex
	workers map[ibc.Object]Worker
}

// NewMap builds an empty worker map.
func NewMap() *Map {
	return &Map{workers: make(map[ibc.Object]Worker)}
}

// GetOrSpawn returns the existing worker for obj, or spawns one via
// factory. spawned reports whether this call created the worker.
func (m *Map) GetOrSpawn(obj ibc.Object, factory Factory) (w Worker, spawned bool) {
	m.mu.RLock()
	if w, ok := m.workers[obj]; ok {
		m.mu.RUnlock()
		return w, false
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workers[obj]; ok {
		return w, false
	}
	w = factory(obj)
	m.workers[obj] = w
	return w, true
}

// Contains reports whether a worker already exists for obj.
func (m *Map) Contains(obj ibc.Object) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.workers[obj]
	return ok
}

// WorkersForChain returns every worker whose Object's source chain is id.
func (m *Map) WorkersForChain(id ibc.ChainID) []Worker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Worker
	for obj, w := range m.workers {
		if obj.SrcChain() == id {
			out = append(out, w)
		}
	}
	return out
}

// ToNotify is an alias for WorkersForChain: the set of workers that
// should be notified of activity observed on chain id. Kept as a distinct
// method since the two can diverge later (e.g. if destination-side
// notification is added) without changing call sites.
func (m *Map) ToNotify(id ibc.ChainID) []Worker {
	return m.WorkersForChain(id)
}

// Remove drops obj from the map without shutting its worker down; callers
// that want a clean stop should Shutdown the worker first.
func (m *Map) Remove(obj ibc.Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workers, obj)
}

// ShutdownChain stops and removes every worker whose Object's source or
// destination chain is id, used when a chain is removed from config.
func (m *Map) ShutdownChain(id ibc.ChainID) {
	m.mu.Lock()
	var toStop []Worker
	for obj, w := range m.workers {
		if obj.SrcChain() == id || obj.DstChain() == id {
			toStop = append(toStop, w)
			delete(m.workers, obj)
		}
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range toStop {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w.Shutdown()
		}(w)
	}
	wg.Wait()
}

// Objects returns the Object key of every live worker, for DumpState.
func (m *Map) Objects() []ibc.Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ibc.Object, 0, len(m.workers))
	for obj := range m.workers {
		out = append(out, obj)
	}
	return out
}

// Shutdown stops every worker and empties the map.
func (m *Map) Shutdown() {
	m.mu.Lock()
	workers := m.workers
	m.workers = make(map[ibc.Object]Worker)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w.Shutdown()
		}(w)
	}
	wg.Wait()
}

// Size returns the number of live workers.
func (m *Map) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}
