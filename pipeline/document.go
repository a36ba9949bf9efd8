// Package pipeline implements the Persistent Pipeline Store (C9): a single logical JSON
// document holding workspace/project/job/event state, protected by a cooperative
// distributed lock, read and written through a ProjectRepository port.
package pipeline

import (
	"context"
	"time"
)

// Well-known document ids sharing one tenant (spec §6's "Persisted document shape").
const (
	TenantID     = "native-pipeline"
	StateDocID   = "pipeline-state-v2"
	LockDocID    = "pipeline-lock-v2"
)

// Document is the generic persisted envelope: a tenant/project-scoped JSON blob guarded
// by an opaque revision for optimistic concurrency.
type Document struct {
	TenantID  string    `json:"tenantId"`
	ProjectID string    `json:"projectId"`
	Revision  string    `json:"revision"`
	StateJSON string    `json:"stateJson"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectRepository is the persistence port the pipeline store mutates through. Backends
// (boltstore, pgstore) implement this against their own storage engine.
type ProjectRepository interface {
	Find(ctx context.Context, tenantID, projectID string) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	SaveIfRevision(ctx context.Context, doc *Document, expectedRevision string) error
	Remove(ctx context.Context, tenantID, projectID string) error
}

// ErrNotFound is returned by ProjectRepository.Find when no document exists.
type ErrNotFound struct{ ProjectID string }

func (e *ErrNotFound) Error() string { return "pipeline: document not found: " + e.ProjectID }

// ErrRevisionConflict is returned by SaveIfRevision when the stored revision no longer
// matches expectedRevision (spec §4.7 step 5: "On conflict, invalidate cache and surface
// a concurrency conflict error").
type ErrRevisionConflict struct {
	ProjectID string
	Expected  string
	Actual    string
}

func (e *ErrRevisionConflict) Error() string {
	return "pipeline: revision conflict on " + e.ProjectID + ": expected " + e.Expected + ", got " + e.Actual
}
