package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultLockTTL, DefaultAcquireTimeout and DefaultRetryInterval match spec §4.7/§5's
// stated defaults.
const (
	DefaultLockTTL        = 2 * time.Second
	DefaultAcquireTimeout = 10 * time.Second
	DefaultRetryInterval  = 50 * time.Millisecond
)

// Locker acquires/releases the pipeline's single global mutation lock. DocumentLocker is
// the default (works against any ProjectRepository); pipeline/redislock provides a
// SETNX-based alternative when ASHFOX_DB_PROVIDER=redis.
type Locker interface {
	Acquire(ctx context.Context, ownerID string, ttl, timeout time.Duration) error
	Release(ctx context.Context, ownerID string) error
}

type lockBody struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewOwnerID builds the owner = pid + UUID identity spec §4.7 requires.
func NewOwnerID() string {
	return fmt.Sprintf("%d-%s", os.Getpid(), uuid.NewString())
}

// DocumentLocker implements the lock protocol described in spec §4.7 step 1 directly
// against the same ProjectRepository the state document uses: an optimistic
// create-or-replace-if-revision on a separate lock document, keyed by LockDocID.
type DocumentLocker struct {
	repo          ProjectRepository
	retryInterval time.Duration
}

// NewDocumentLocker builds a DocumentLocker over repo.
func NewDocumentLocker(repo ProjectRepository) *DocumentLocker {
	return &DocumentLocker{repo: repo, retryInterval: DefaultRetryInterval}
}

// WithRetryInterval overrides the poll interval Acquire uses while waiting for a
// contended lock to free up; zero leaves the default untouched.
func (l *DocumentLocker) WithRetryInterval(d time.Duration) *DocumentLocker {
	if d > 0 {
		l.retryInterval = d
	}
	return l
}

// Acquire attempts to win the lock document, retrying until timeout elapses.
func (l *DocumentLocker) Acquire(ctx context.Context, ownerID string, ttl, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.tryAcquire(ctx, ownerID, ttl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pipeline: lock acquire timed out after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *DocumentLocker) tryAcquire(ctx context.Context, ownerID string, ttl time.Duration) (bool, error) {
	existing, err := l.repo.Find(ctx, TenantID, LockDocID)
	if _, isNotFound := err.(*ErrNotFound); isNotFound || existing == nil {
		return l.writeLock(ctx, ownerID, ttl, "")
	}
	if err != nil {
		return false, err
	}

	var body lockBody
	if err := json.Unmarshal([]byte(existing.StateJSON), &body); err != nil {
		return false, err
	}

	if body.Owner != "" && body.Owner != ownerID && time.Now().Before(body.ExpiresAt) {
		return false, nil // held by someone else, not yet expired
	}

	return l.writeLock(ctx, ownerID, ttl, existing.Revision)
}

func (l *DocumentLocker) writeLock(ctx context.Context, ownerID string, ttl time.Duration, expectedRevision string) (bool, error) {
	body := lockBody{Owner: ownerID, ExpiresAt: time.Now().Add(ttl)}
	data, err := json.Marshal(body)
	if err != nil {
		return false, err
	}

	doc := &Document{
		TenantID:  TenantID,
		ProjectID: LockDocID,
		Revision:  ownerID,
		StateJSON: string(data),
		UpdatedAt: time.Now(),
	}

	if err := l.repo.SaveIfRevision(ctx, doc, expectedRevision); err != nil {
		if _, conflict := err.(*ErrRevisionConflict); conflict {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release clears the lock document if still held by ownerID.
func (l *DocumentLocker) Release(ctx context.Context, ownerID string) error {
	existing, err := l.repo.Find(ctx, TenantID, LockDocID)
	if _, isNotFound := err.(*ErrNotFound); isNotFound || existing == nil {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Revision != ownerID {
		return nil // already reclaimed by a peer after expiry
	}

	body := lockBody{}
	data, _ := json.Marshal(body)
	released := &Document{
		TenantID:  TenantID,
		ProjectID: LockDocID,
		Revision:  "",
		StateJSON: string(data),
		UpdatedAt: time.Now(),
	}
	return l.repo.SaveIfRevision(ctx, released, ownerID)
}
