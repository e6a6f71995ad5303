package swarm

import (
	"math/rand"
	"sync"
)

// OwnedIDs is the set of task IDs a single virtual user created.
//
// It belongs to exactly one user; the mutex only lets the runner take a
// snapshot while the user's goroutine is still running.
type OwnedIDs struct {
	mu    sync.Mutex
	ids   []string
	index map[string]int
}

// NewOwnedIDs returns an empty set.
func NewOwnedIDs() *OwnedIDs {
	return &OwnedIDs{index: make(map[string]int)}
}

// Add inserts id. Adding an id that is already present is a no-op, and
// empty ids are ignored. It reports whether the set changed.
func (o *OwnedIDs) Add(id string) bool {
	if id == "" {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.index[id]; ok {
		return false
	}
	o.index[id] = len(o.ids)
	o.ids = append(o.ids, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (o *OwnedIDs) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	i, ok := o.index[id]
	if !ok {
		return false
	}

	// Swap with the last element to keep removal O(1)
	last := len(o.ids) - 1
	if i != last {
		o.ids[i] = o.ids[last]
		o.index[o.ids[i]] = i
	}
	o.ids = o.ids[:last]
	delete(o.index, id)
	return true
}

// Contains reports whether id is in the set.
func (o *OwnedIDs) Contains(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.index[id]
	return ok
}

// Len returns the number of ids.
func (o *OwnedIDs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.ids)
}

// Random returns a uniformly chosen id, or false when the set is empty.
func (o *OwnedIDs) Random(rng *rand.Rand) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.ids) == 0 {
		return "", false
	}
	return o.ids[rng.Intn(len(o.ids))], true
}

// Snapshot returns a copy of the ids in no particular order.
func (o *OwnedIDs) Snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.ids))
	copy(out, o.ids)
	return out
}
