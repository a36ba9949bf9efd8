// Package revision implements the bounded revision cache (C1): a FIFO-by-first-insert
// map from content-hash revision to cloned project snapshot, used for optimistic
// concurrency (ifRevision) across the tool service.
//
// Grounded on the teacher's statemanager.Manager: same capacity-bounded map with
// oldest-eviction, generalized from tracked operations to tracked snapshots.
package revision

import (
	"sync"

	"github.com/ashfox/gateway/project"
)

// DefaultCapacity is K from spec §3 ("Cache keeps the last K=5 (snapshot, revision)
// pairs").
const DefaultCapacity = 5

// entry pairs a cached snapshot with its insertion order, used to find the oldest
// entry on eviction.
type entry struct {
	snapshot *project.Snapshot
	seq      uint64
}

// Store is a bounded, concurrency-safe revision → snapshot cache.
type Store struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*entry
	nextSeq  uint64
}

// New creates a revision store with the given capacity. A capacity <= 0 falls back to
// DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*entry, capacity),
	}
}

// Hash computes the pure, side-effect-free content hash of a snapshot (spec §4.1).
func Hash(s *project.Snapshot) string {
	return DJB2Hex(s.Canonical())
}

// Track computes the snapshot's revision, clones and inserts it keyed by that
// revision, evicting the oldest entry once over capacity, and returns the revision.
// Re-tracking an already-cached revision refreshes its stored clone but not its
// insertion order (first-insert order is the eviction basis, not last-use).
func (st *Store) Track(s *project.Snapshot) string {
	rev := Hash(s)

	st.mu.Lock()
	defer st.mu.Unlock()

	if existing, ok := st.entries[rev]; ok {
		existing.snapshot = s.Clone()
		return rev
	}

	if len(st.entries) >= st.capacity {
		st.evictOldestLocked()
	}

	st.nextSeq++
	st.entries[rev] = &entry{snapshot: s.Clone(), seq: st.nextSeq}
	return rev
}

// Get returns a deep-cloned snapshot for the given revision, or nil if not cached.
func (st *Store) Get(revision string) *project.Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	e, ok := st.entries[revision]
	if !ok {
		return nil
	}
	return e.snapshot.Clone()
}

// Len reports the number of cached revisions (bounded by capacity).
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

// evictOldestLocked removes the entry with the smallest seq. Must be called with mu
// held for writing.
func (st *Store) evictOldestLocked() {
	var oldestRev string
	var oldestSeq uint64
	first := true
	for rev, e := range st.entries {
		if first || e.seq < oldestSeq {
			oldestRev = rev
			oldestSeq = e.seq
			first = false
		}
	}
	if oldestRev != "" {
		delete(st.entries, oldestRev)
	}
}
