package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentLockerAcquireReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	locker := NewDocumentLocker(repo)

	owner := NewOwnerID()
	require.NoError(t, locker.Acquire(ctx, owner, DefaultLockTTL, DefaultAcquireTimeout))
	require.NoError(t, locker.Release(ctx, owner))

	other := NewOwnerID()
	assert.NoError(t, locker.Acquire(ctx, other, DefaultLockTTL, DefaultAcquireTimeout))
}

func TestDocumentLockerAcquireTimesOutWhileHeldByAnotherOwner(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	locker := NewDocumentLocker(repo).WithRetryInterval(time.Millisecond)

	holder := NewOwnerID()
	require.NoError(t, locker.Acquire(ctx, holder, DefaultLockTTL, DefaultAcquireTimeout))

	contender := NewOwnerID()
	err := locker.Acquire(ctx, contender, DefaultLockTTL, 10*time.Millisecond)
	assert.Error(t, err)
}

func TestDocumentLockerWithRetryIntervalZeroKeepsDefault(t *testing.T) {
	locker := NewDocumentLocker(newFakeRepository()).WithRetryInterval(0)
	assert.Equal(t, DefaultRetryInterval, locker.retryInterval)
}
