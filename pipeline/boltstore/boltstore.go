// Package boltstore implements the pipeline.ProjectRepository port over an embedded
// bbolt database: the default backend (ASHFOX_DB_PROVIDER=bolt). Adapted from
// eve.evalgo.org's db/bolt package, kept close to its Open/PutJSON/GetJSON shape but
// narrowed to the single documents bucket the pipeline store needs and given
// revision-checked writes.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ashfox/gateway/pipeline"
)

const documentsBucket = "pipeline_documents"

// DB wraps a bbolt database, matching the teacher's thin-wrapper style.
type DB struct {
	*bolt.DB
}

// Open opens or creates a bbolt database at path and ensures the documents bucket
// exists.
func Open(path string) (*DB, error) {
	boltDB, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := &DB{boltDB}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(documentsBucket))
		return err
	}); err != nil {
		_ = boltDB.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", documentsBucket, err)
	}
	return db, nil
}

// Repository implements pipeline.ProjectRepository over a *DB.
type Repository struct {
	db *DB
}

// NewRepository wraps db as a pipeline.ProjectRepository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func docKey(tenantID, projectID string) []byte {
	return []byte(tenantID + "/" + projectID)
}

// Find returns the document for tenantID/projectID, or *pipeline.ErrNotFound.
func (r *Repository) Find(_ context.Context, tenantID, projectID string) (*pipeline.Document, error) {
	var doc pipeline.Document
	found := false

	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(documentsBucket))
		data := b.Get(docKey(tenantID, projectID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &pipeline.ErrNotFound{ProjectID: projectID}
	}
	return &doc, nil
}

// Save writes doc unconditionally.
func (r *Repository) Save(_ context.Context, doc *pipeline.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(documentsBucket))
		return b.Put(docKey(doc.TenantID, doc.ProjectID), data)
	})
}

// SaveIfRevision writes doc only if the currently stored document's revision equals
// expectedRevision (empty expectedRevision means "must not currently exist").
func (r *Repository) SaveIfRevision(_ context.Context, doc *pipeline.Document, expectedRevision string) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(documentsBucket))
		key := docKey(doc.TenantID, doc.ProjectID)
		existing := b.Get(key)

		var actual string
		if existing != nil {
			var current pipeline.Document
			if err := json.Unmarshal(existing, &current); err != nil {
				return err
			}
			actual = current.Revision
		}

		if actual != expectedRevision {
			return &pipeline.ErrRevisionConflict{ProjectID: doc.ProjectID, Expected: expectedRevision, Actual: actual}
		}
		return b.Put(key, data)
	})
}

// Remove deletes the document for tenantID/projectID, if any.
func (r *Repository) Remove(_ context.Context, tenantID, projectID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(documentsBucket))
		return b.Delete(docKey(tenantID, projectID))
	})
}
