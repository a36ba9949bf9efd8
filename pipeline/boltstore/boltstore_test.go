package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfox/gateway/pipeline"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func TestFindMissingReturnsNotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Find(context.Background(), "tenant", "missing-project")
	var notFound *pipeline.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestSaveThenFindRoundTrips(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := &pipeline.Document{TenantID: "tenant", ProjectID: "proj-1", Revision: "rev-1", StateJSON: `{"a":1}`}
	require.NoError(t, repo.Save(ctx, doc))

	found, err := repo.Find(ctx, "tenant", "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "rev-1", found.Revision)
	assert.Equal(t, `{"a":1}`, found.StateJSON)
}

func TestSaveIfRevisionRejectsStaleExpectation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first := &pipeline.Document{TenantID: "tenant", ProjectID: "proj-1", Revision: "rev-1", StateJSON: `{}`}
	require.NoError(t, repo.SaveIfRevision(ctx, first, ""))

	second := &pipeline.Document{TenantID: "tenant", ProjectID: "proj-1", Revision: "rev-2", StateJSON: `{}`}
	err := repo.SaveIfRevision(ctx, second, "wrong-expectation")

	var conflict *pipeline.ErrRevisionConflict
	assert.ErrorAs(t, err, &conflict)
	if conflict != nil {
		assert.Equal(t, "rev-1", conflict.Actual)
	}
}

func TestSaveIfRevisionAcceptsMatchingExpectation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first := &pipeline.Document{TenantID: "tenant", ProjectID: "proj-1", Revision: "rev-1", StateJSON: `{}`}
	require.NoError(t, repo.SaveIfRevision(ctx, first, ""))

	second := &pipeline.Document{TenantID: "tenant", ProjectID: "proj-1", Revision: "rev-2", StateJSON: `{"b":2}`}
	require.NoError(t, repo.SaveIfRevision(ctx, second, "rev-1"))

	found, err := repo.Find(ctx, "tenant", "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "rev-2", found.Revision)
}

func TestRemoveDeletesDocument(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := &pipeline.Document{TenantID: "tenant", ProjectID: "proj-1", Revision: "rev-1", StateJSON: `{}`}
	require.NoError(t, repo.Save(ctx, doc))
	require.NoError(t, repo.Remove(ctx, "tenant", "proj-1"))

	_, err := repo.Find(ctx, "tenant", "proj-1")
	var notFound *pipeline.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}
