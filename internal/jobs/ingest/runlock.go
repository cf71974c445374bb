package ingest

import "sync"

// runLocks is the single source of truth for in-flight ingestion runs.
// Scheduler ticks and manual triggers racing on the same source are
// serialized here, never by timing.
var runLocks = lockRegistry{running: make(map[uint64]struct{})}

type lockRegistry struct {
	mu      sync.Mutex
	running map[uint64]struct{}
}

func (r *lockRegistry) TryAcquire(sourceID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.running[sourceID]; held {
		return false
	}
	r.running[sourceID] = struct{}{}
	return true
}

func (r *lockRegistry) Release(sourceID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, sourceID)
}

func (r *lockRegistry) IsHeld(sourceID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.running[sourceID]
	return held
}

// IsRunning reports whether an ingestion run is in flight for the source.
func IsRunning(sourceID uint64) bool {
	return runLocks.IsHeld(sourceID)
}
