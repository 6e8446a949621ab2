package hooks

import "sync"

// Tracker counts in-flight mutations per entity id. A row is optimistic while
// its count is non-zero.
type Tracker struct {
	mu       sync.Mutex
	inflight map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{inflight: make(map[string]int)}
}

// Begin records a mutation targeting id.
func (t *Tracker) Begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id]++
}

// End records that a mutation targeting id settled. Extra calls are ignored.
func (t *Tracker) End(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch n := t.inflight[id]; {
	case n > 1:
		t.inflight[id] = n - 1
	case n == 1:
		delete(t.inflight, id)
	}
}

// Count returns the number of in-flight mutations targeting id.
func (t *Tracker) Count(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight[id]
}

func (t *Tracker) Pending(id string) bool {
	return t.Count(id) > 0
}

// Any reports whether any mutation is in flight.
func (t *Tracker) Any() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) > 0
}
