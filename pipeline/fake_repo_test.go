package pipeline

import (
	"context"
	"sync"
	"time"
)

// fakeRepository is an in-memory ProjectRepository test double, keyed the same way every
// backend keys its rows (tenantID/projectID).
type fakeRepository struct {
	mu   sync.Mutex
	docs map[string]Document
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{docs: map[string]Document{}}
}

func fakeKey(tenantID, projectID string) string { return tenantID + "/" + projectID }

func (r *fakeRepository) Find(_ context.Context, tenantID, projectID string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[fakeKey(tenantID, projectID)]
	if !ok {
		return nil, &ErrNotFound{ProjectID: projectID}
	}
	copied := doc
	return &copied, nil
}

func (r *fakeRepository) Save(_ context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[fakeKey(doc.TenantID, doc.ProjectID)] = *doc
	return nil
}

func (r *fakeRepository) SaveIfRevision(_ context.Context, doc *Document, expectedRevision string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fakeKey(doc.TenantID, doc.ProjectID)
	existing, ok := r.docs[key]

	actual := ""
	if ok {
		actual = existing.Revision
	}
	if actual != expectedRevision {
		return &ErrRevisionConflict{ProjectID: doc.ProjectID, Expected: expectedRevision, Actual: actual}
	}
	r.docs[key] = *doc
	return nil
}

func (r *fakeRepository) Remove(_ context.Context, tenantID, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, fakeKey(tenantID, projectID))
	return nil
}

// fakeLocker is a process-local mutex standing in for the real DocumentLocker/redislock
// implementations, sufficient for exercising Store's retry loop under real contention.
type fakeLocker struct {
	mu sync.Mutex
}

func (l *fakeLocker) Acquire(ctx context.Context, _ string, _, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *fakeLocker) Release(_ context.Context, _ string) error {
	l.mu.Unlock()
	return nil
}
