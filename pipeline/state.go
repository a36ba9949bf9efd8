package pipeline

import "time"

// Workspace is a named grouping of projects/folders (spec §4.7's state layout).
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Folder groups projects within a workspace.
type Folder struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
}

// ProjectRecord is the persisted-pipeline-side bookkeeping entry for a project (not to be
// confused with project.Snapshot, the in-memory editable model).
type ProjectRecord struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	FolderID    string    `json:"folderId,omitempty"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// JobStatus enumerates a job's lifecycle state.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one unit of queued work (spec §4.7/§4.8), e.g. kind "gltf.convert" or
// "texture.preflight".
type Job struct {
	ID          string                 `json:"id"`
	Kind        string                 `json:"kind"`
	ProjectID   string                 `json:"projectId"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Status      JobStatus              `json:"status"`
	WorkerID    string                 `json:"workerId,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// ProjectEvent is one entry in a project's append-only event log (spec §4.7).
type ProjectEvent struct {
	ProjectID string                 `json:"projectId"`
	Seq       uint64                 `json:"seq"`
	Kind      string                 `json:"kind"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// ProjectLock is an optional per-project cooperative lock (distinct from the global
// document lock), renewable and lazily reclaimed once expired (spec §4.7).
type ProjectLock struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NativePipelineState is the single logical document's deserialized shape.
type NativePipelineState struct {
	Workspaces         map[string]Workspace      `json:"workspaces"`
	Projects           map[string]ProjectRecord  `json:"projects"`
	Folders            map[string]Folder         `json:"folders"`
	Jobs               map[string]Job            `json:"jobs"`
	QueuedJobIDs       []string                  `json:"queuedJobIds"`
	Events             map[string][]ProjectEvent `json:"events"`
	ProjectEventCursor map[string]uint64         `json:"projectEventCursor"`
	ProjectLocks       map[string]ProjectLock    `json:"projectLocks"`
	Counters           map[string]uint64         `json:"counters"`
}

// SeedState returns a freshly initialized, empty state document (spec §4.7: "Reads that
// see a missing state seed defaults under the lock").
func SeedState() *NativePipelineState {
	return &NativePipelineState{
		Workspaces:         map[string]Workspace{},
		Projects:           map[string]ProjectRecord{},
		Folders:            map[string]Folder{},
		Jobs:               map[string]Job{},
		QueuedJobIDs:       []string{},
		Events:             map[string][]ProjectEvent{},
		ProjectEventCursor: map[string]uint64{},
		ProjectLocks:       map[string]ProjectLock{},
		Counters:           map[string]uint64{},
	}
}
