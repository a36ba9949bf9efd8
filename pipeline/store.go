package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MaxMutateAttempts bounds the optimistic-concurrency retry loop (spec §9's "Centralize
// as mutate(readFn, mutateFn, saveIfRevisionFn, maxAttempts=5) helper").
const MaxMutateAttempts = 5

// Store is the Persistent Pipeline Store: a single logical document accessed through a
// ProjectRepository, serialized by a Locker, with an in-memory read cache that a
// successful mutation replaces with the committed state and a conflict invalidates
// (spec §4.7).
type Store struct {
	repo   ProjectRepository
	locker Locker
	ttl    time.Duration
	acquireTimeout time.Duration

	mu        sync.RWMutex
	cacheRev  string
	cacheData *NativePipelineState
}

// New builds a Store over repo, using locker for the global mutation lock.
func New(repo ProjectRepository, locker Locker) *Store {
	return &Store{
		repo:           repo,
		locker:         locker,
		ttl:            DefaultLockTTL,
		acquireTimeout: DefaultAcquireTimeout,
	}
}

// WithLockTiming overrides the lock TTL/acquire timeout the Store passes to its Locker
// on every Mutate call; zero values leave the corresponding default untouched.
func (st *Store) WithLockTiming(ttl, acquireTimeout time.Duration) *Store {
	if ttl > 0 {
		st.ttl = ttl
	}
	if acquireTimeout > 0 {
		st.acquireTimeout = acquireTimeout
	}
	return st
}

// hashState computes the sha256-of-state-json revision spec §6 requires for the
// persisted document (distinct from the DJB2 project-snapshot revision in §4.1 — this
// one has no cross-process wire contract of its own, just "a stable content hash").
func hashState(s *NativePipelineState) (string, string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), string(data), nil
}

// Read returns the current state and its revision. It may serve from the in-memory
// cache for non-mutating callers that can tolerate staleness (spec §5's "listing
// endpoints" carve-out); mutating callers must go through Mutate instead.
func (st *Store) Read(ctx context.Context) (*NativePipelineState, string, error) {
	st.mu.RLock()
	if st.cacheData != nil {
		data, rev := st.cacheData, st.cacheRev
		st.mu.RUnlock()
		return data, rev, nil
	}
	st.mu.RUnlock()
	return st.readFresh(ctx)
}

func (st *Store) readFresh(ctx context.Context) (*NativePipelineState, string, error) {
	doc, err := st.repo.Find(ctx, TenantID, StateDocID)
	if _, isNotFound := err.(*ErrNotFound); isNotFound || doc == nil {
		seeded := SeedState()
		return seeded, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	var state NativePipelineState
	if err := json.Unmarshal([]byte(doc.StateJSON), &state); err != nil {
		return nil, "", err
	}

	st.mu.Lock()
	st.cacheData = &state
	st.cacheRev = doc.Revision
	st.mu.Unlock()

	return &state, doc.Revision, nil
}

func (st *Store) invalidateCache() {
	st.mu.Lock()
	st.cacheData = nil
	st.cacheRev = ""
	st.mu.Unlock()
}

// Mutate runs fn against a freshly read state under the global lock, retrying up to
// MaxMutateAttempts times on a save conflict (spec §4.7's withMutation protocol). fn
// mutates state in place and returns a domain error to abort, or nil to commit.
func (st *Store) Mutate(ctx context.Context, fn func(state *NativePipelineState) error) error {
	ownerID := NewOwnerID()

	if err := st.locker.Acquire(ctx, ownerID, st.ttl, st.acquireTimeout); err != nil {
		return fmt.Errorf("pipeline: acquire lock: %w", err)
	}
	defer func() { _ = st.locker.Release(ctx, ownerID) }()

	var lastErr error
	for attempt := 0; attempt < MaxMutateAttempts; attempt++ {
		doc, err := st.repo.Find(ctx, TenantID, StateDocID)
		var state *NativePipelineState
		var expectedRevision string

		if _, isNotFound := err.(*ErrNotFound); isNotFound || doc == nil {
			state = SeedState()
			expectedRevision = ""
		} else if err != nil {
			return err
		} else {
			state = &NativePipelineState{}
			if err := json.Unmarshal([]byte(doc.StateJSON), state); err != nil {
				return err
			}
			expectedRevision = doc.Revision
		}

		if err := fn(state); err != nil {
			return err
		}

		newRevision, data, err := hashState(state)
		if err != nil {
			return err
		}
		next := &Document{
			TenantID:  TenantID,
			ProjectID: StateDocID,
			Revision:  newRevision,
			StateJSON: data,
			UpdatedAt: time.Now(),
		}

		err = st.repo.SaveIfRevision(ctx, next, expectedRevision)
		if err == nil {
			st.mu.Lock()
			st.cacheData = state
			st.cacheRev = newRevision
			st.mu.Unlock()
			return nil
		}
		if _, conflict := err.(*ErrRevisionConflict); !conflict {
			return err
		}
		lastErr = err
		st.invalidateCache()
	}
	return fmt.Errorf("pipeline: mutation failed after %d attempts: %w", MaxMutateAttempts, lastErr)
}
