// Package memstore implements pipeline.ProjectRepository and pipeline.Locker entirely
// in-memory, for ASHFOX_NATIVE_PIPELINE_BACKEND=memory (spec §6): no document survives a
// process restart, and the lock is a plain mutex since there is only ever one process to
// serialize against.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ashfox/gateway/pipeline"
)

// Repository is an in-memory pipeline.ProjectRepository keyed by tenantID/projectID.
type Repository struct {
	mu   sync.Mutex
	docs map[string]pipeline.Document
}

// NewRepository builds an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{docs: map[string]pipeline.Document{}}
}

func key(tenantID, projectID string) string { return tenantID + "/" + projectID }

// Find implements pipeline.ProjectRepository.
func (r *Repository) Find(_ context.Context, tenantID, projectID string) (*pipeline.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[key(tenantID, projectID)]
	if !ok {
		return nil, &pipeline.ErrNotFound{ProjectID: projectID}
	}
	copied := doc
	return &copied, nil
}

// Save implements pipeline.ProjectRepository, unconditionally overwriting any existing
// document.
func (r *Repository) Save(_ context.Context, doc *pipeline.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[key(doc.TenantID, doc.ProjectID)] = *doc
	return nil
}

// SaveIfRevision implements pipeline.ProjectRepository's optimistic-concurrency write.
func (r *Repository) SaveIfRevision(_ context.Context, doc *pipeline.Document, expectedRevision string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(doc.TenantID, doc.ProjectID)
	existing, ok := r.docs[k]
	actual := ""
	if ok {
		actual = existing.Revision
	}
	if actual != expectedRevision {
		return &pipeline.ErrRevisionConflict{ProjectID: doc.ProjectID, Expected: expectedRevision, Actual: actual}
	}
	r.docs[k] = *doc
	return nil
}

// Remove implements pipeline.ProjectRepository.
func (r *Repository) Remove(_ context.Context, tenantID, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, key(tenantID, projectID))
	return nil
}

// Locker is an in-process pipeline.Locker backed by a plain mutex: a single gateway
// process has no peer to contend with, so there is no need for TTL expiry or polling.
type Locker struct {
	mu    sync.Mutex
	owner string
}

// NewLocker builds an unlocked in-process Locker.
func NewLocker() *Locker { return &Locker{} }

// Acquire implements pipeline.Locker. ttl is ignored: the lock is released explicitly by
// the same process that took it, and no peer can outlive a crashed holder to reclaim it.
func (l *Locker) Acquire(ctx context.Context, ownerID string, _ time.Duration, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		l.owner = ownerID
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}

// Release implements pipeline.Locker.
func (l *Locker) Release(_ context.Context, ownerID string) error {
	if l.owner != ownerID {
		return nil
	}
	l.owner = ""
	l.mu.Unlock()
	return nil
}
