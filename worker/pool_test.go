package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfox/gateway/pipeline"
	"github.com/ashfox/gateway/pipeline/memstore"
	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/toolservice"
)

func newTestStore() *pipeline.Store {
	return pipeline.New(memstore.NewRepository(), memstore.NewLocker())
}

// fakeBackend is a single-active-project stand-in for *toolservice.Service.
type fakeBackend struct {
	mu         sync.Mutex
	active     *project.Snapshot
	failExport bool
}

func (b *fakeBackend) EnsureProject(id, name, format string) toolservice.UsecaseResult[*project.Snapshot] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		b.active = &project.Snapshot{ID: id, Name: name, Format: format}
	}
	return toolservice.Ok(b.active.Clone(), "rev-1")
}

func (b *fakeBackend) AddBone(_ map[string]interface{}, args toolservice.AddBonePayload) toolservice.UsecaseResult[*project.Snapshot] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active.Bones = append(b.active.Bones, project.Bone{Name: args.Name})
	return toolservice.Ok(b.active.Clone(), "rev-2")
}

func (b *fakeBackend) AddAnimation(_ map[string]interface{}, a project.Animation) toolservice.UsecaseResult[*project.Snapshot] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active.Animations = append(b.active.Animations, a)
	return toolservice.Ok(b.active.Clone(), "rev-3")
}

func (b *fakeBackend) ImportTexture(_ map[string]interface{}, args toolservice.ImportTexturePayload) toolservice.UsecaseResult[*project.Snapshot] {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active.Textures = append(b.active.Textures, project.Texture{ID: args.Name, Name: args.Name, Width: 64, Height: 64})
	return toolservice.Ok(b.active.Clone(), "rev-4")
}

func (b *fakeBackend) PreflightTexture(_ bool) toolservice.UsecaseResult[toolservice.PreflightTextureResult] {
	return toolservice.Ok(toolservice.PreflightTextureResult{UVUsageID: "uv-1"}, "rev-4")
}

func (b *fakeBackend) GetProjectState() toolservice.UsecaseResult[*project.Snapshot] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return toolservice.Ok(b.active.Clone(), "rev-4")
}

func (b *fakeBackend) Export(format string) toolservice.UsecaseResult[toolservice.ExportResult] {
	if b.failExport {
		return toolservice.Err[toolservice.ExportResult](&toolservice.ToolError{Code: toolservice.ErrIOError, Message: "export failed"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return toolservice.Ok(toolservice.ExportResult{
		Hierarchy: b.active.Bones,
		Output:    map[string]interface{}{"format": format},
	}, "rev-5")
}

func TestProcessGLTFConvertAssemblesExportResult(t *testing.T) {
	backend := &fakeBackend{}
	p := New(newTestStore(), backend, PreflightConstraints{}, 1)

	job := &pipeline.Job{
		ID:        "job-1",
		Kind:      "gltf.convert",
		ProjectID: "proj-1",
		Payload: map[string]interface{}{
			"name":   "demo",
			"format": "gltf",
			"bones":  []interface{}{map[string]interface{}{"name": "root"}},
		},
	}

	result, err := p.process(job)
	require.NoError(t, err)
	output, _ := result["output"].(map[string]interface{})
	assert.Equal(t, "gltf", output["format"])
}

func TestProcessGLTFConvertFailsJobWhenExportFails(t *testing.T) {
	backend := &fakeBackend{failExport: true}
	p := New(newTestStore(), backend, PreflightConstraints{}, 1)

	job := &pipeline.Job{ID: "job-1", Kind: "gltf.convert", ProjectID: "proj-1"}

	_, err := p.process(job)
	assert.Error(t, err)
}

func TestProcessTexturePreflightFlagsOversizedTexture(t *testing.T) {
	backend := &fakeBackend{}
	backend.EnsureProject("proj-1", "demo", "")
	backend.ImportTexture(nil, toolservice.ImportTexturePayload{Name: "tex-1"})

	p := New(newTestStore(), backend, PreflightConstraints{MaxDimension: 32}, 1)

	job := &pipeline.Job{ID: "job-1", Kind: "texture.preflight", ProjectID: "proj-1", Payload: map[string]interface{}{
		"name": "demo",
	}}

	result, err := p.process(job)
	require.NoError(t, err)
	oversized, _ := result["oversized"].([]string)
	assert.Contains(t, oversized, "tex-1")
	assert.Equal(t, "violations", result["status"])
}

func TestProcessUnknownKindReturnsError(t *testing.T) {
	backend := &fakeBackend{}
	p := New(newTestStore(), backend, PreflightConstraints{}, 1)

	job := &pipeline.Job{ID: "job-1", Kind: "unknown.kind", ProjectID: "proj-1"}
	_, err := p.process(job)
	assert.Error(t, err)
}

func TestStoreClaimsJobsInFIFOOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	idA, err := store.SubmitJob(ctx, "proj-1", "gltf.convert", map[string]interface{}{"name": "a"})
	require.NoError(t, err)
	idB, err := store.SubmitJob(ctx, "proj-1", "gltf.convert", map[string]interface{}{"name": "b"})
	require.NoError(t, err)

	first, err := store.ClaimNextJob(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, idA, first.ID)

	second, err := store.ClaimNextJob(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, idB, second.ID)
}
