// Package seasonlock provides the per-season critical section that serializes
// every session-mutating operation: pick commits, admin actions, and timer
// fires. Unrelated seasons proceed independently.
package seasonlock

import "sync"

// Keyed is a mutex set keyed by season ID. Entries are created lazily and
// reference-counted so the table does not grow with dead seasons.
type Keyed struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New returns an empty keyed mutex set.
func New() *Keyed {
	return &Keyed{locks: make(map[int64]*entry)}
}

// Lock acquires the exclusive section for seasonID, blocking until the
// current holder releases it. The returned func releases the section and is
// safe to call exactly once.
func (k *Keyed) Lock(seasonID int64) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[seasonID]
	if !ok {
		e = &entry{}
		k.locks[seasonID] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, seasonID)
		}
		k.mu.Unlock()
	}
}
