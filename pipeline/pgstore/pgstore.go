// Package pgstore implements the pipeline.ProjectRepository port over PostgreSQL via
// GORM (ASHFOX_DB_PROVIDER=postgres). The conditional-update idiom (UPDATE ... WHERE
// revision = ? then check RowsAffected) is grounded on eve.evalgo.org's
// db/state_store.go optimistic-conflict pattern, rewritten against a generic document
// row instead of that package's workflow-action schema.
package pgstore

import (
	"context"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ashfox/gateway/pipeline"
)

// pipelineDocumentRow is the GORM model backing pipeline.Document.
type pipelineDocumentRow struct {
	TenantID  string `gorm:"primaryKey;column:tenant_id"`
	ProjectID string `gorm:"primaryKey;column:project_id"`
	Revision  string `gorm:"column:revision"`
	StateJSON string `gorm:"column:state_json;type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (pipelineDocumentRow) TableName() string { return "pipeline_documents" }

// Repository implements pipeline.ProjectRepository over a *gorm.DB.
type Repository struct {
	db *gorm.DB
}

// Open connects to a PostgreSQL DSN and runs AutoMigrate for pipelineDocumentRow (the
// `ashfoxd migrate` bootstrap command calls this directly).
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&pipelineDocumentRow{}); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// NewRepository wraps an already-open *gorm.DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns the document for tenantID/projectID, or *pipeline.ErrNotFound.
func (r *Repository) Find(ctx context.Context, tenantID, projectID string) (*pipeline.Document, error) {
	var row pipelineDocumentRow
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND project_id = ?", tenantID, projectID).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, &pipeline.ErrNotFound{ProjectID: projectID}
	}
	if err != nil {
		return nil, err
	}
	return rowToDoc(row), nil
}

// Save upserts doc unconditionally.
func (r *Repository) Save(ctx context.Context, doc *pipeline.Document) error {
	row := docToRow(doc)
	return r.db.WithContext(ctx).Save(&row).Error
}

// SaveIfRevision upserts doc only if the stored row's revision equals expectedRevision,
// using RowsAffected()==0 to detect a lost race (eve.evalgo.org's StateStore idiom).
func (r *Repository) SaveIfRevision(ctx context.Context, doc *pipeline.Document, expectedRevision string) error {
	row := docToRow(doc)

	if expectedRevision == "" {
		result := r.db.WithContext(ctx).Clauses().Create(&row)
		if result.Error != nil {
			// Unique-constraint violation means someone else created it first.
			return &pipeline.ErrRevisionConflict{ProjectID: doc.ProjectID, Expected: expectedRevision, Actual: "unknown"}
		}
		return nil
	}

	result := r.db.WithContext(ctx).Model(&pipelineDocumentRow{}).
		Where("tenant_id = ? AND project_id = ? AND revision = ?", doc.TenantID, doc.ProjectID, expectedRevision).
		Updates(map[string]interface{}{
			"revision":   row.Revision,
			"state_json": row.StateJSON,
			"updated_at": row.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		actual := ""
		if existing, err := r.Find(ctx, doc.TenantID, doc.ProjectID); err == nil {
			actual = existing.Revision
		}
		return &pipeline.ErrRevisionConflict{ProjectID: doc.ProjectID, Expected: expectedRevision, Actual: actual}
	}
	return nil
}

// Remove deletes the document row for tenantID/projectID, if any.
func (r *Repository) Remove(ctx context.Context, tenantID, projectID string) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND project_id = ?", tenantID, projectID).
		Delete(&pipelineDocumentRow{}).Error
}

func docToRow(doc *pipeline.Document) pipelineDocumentRow {
	return pipelineDocumentRow{
		TenantID:  doc.TenantID,
		ProjectID: doc.ProjectID,
		Revision:  doc.Revision,
		StateJSON: doc.StateJSON,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func rowToDoc(row pipelineDocumentRow) *pipeline.Document {
	return &pipeline.Document{
		TenantID:  row.TenantID,
		ProjectID: row.ProjectID,
		Revision:  row.Revision,
		StateJSON: row.StateJSON,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
