package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfox/gateway/pipeline"
)

func TestFindMissingReturnsNotFound(t *testing.T) {
	repo := NewRepository()
	_, err := repo.Find(context.Background(), pipeline.TenantID, pipeline.StateDocID)
	assert.Error(t, err)
}

func TestSaveThenFindRoundTrips(t *testing.T) {
	repo := NewRepository()
	doc := &pipeline.Document{TenantID: pipeline.TenantID, ProjectID: pipeline.StateDocID, Revision: "r1", StateJSON: "{}"}
	require.NoError(t, repo.Save(context.Background(), doc))

	found, err := repo.Find(context.Background(), pipeline.TenantID, pipeline.StateDocID)
	require.NoError(t, err)
	assert.Equal(t, "r1", found.Revision)
}

func TestSaveIfRevisionRejectsStaleExpectation(t *testing.T) {
	repo := NewRepository()
	doc := &pipeline.Document{TenantID: pipeline.TenantID, ProjectID: pipeline.StateDocID, Revision: "r1", StateJSON: "{}"}
	require.NoError(t, repo.Save(context.Background(), doc))

	stale := &pipeline.Document{TenantID: pipeline.TenantID, ProjectID: pipeline.StateDocID, Revision: "r2", StateJSON: "{}"}
	err := repo.SaveIfRevision(context.Background(), stale, "wrong-expectation")
	assert.Error(t, err)
}

func TestLockerSerializesConcurrentAcquires(t *testing.T) {
	locker := NewLocker()
	ctx := context.Background()

	require.NoError(t, locker.Acquire(ctx, "owner-1", time.Second, time.Second))

	done := make(chan struct{})
	go func() {
		_ = locker.Acquire(ctx, "owner-2", time.Second, time.Second)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second acquire should have blocked while owner-1 holds the lock")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, locker.Release(ctx, "owner-1"))
	<-done
}
