package toolservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfox/gateway/project"
)

func newTestService() *Service {
	return New(nil, Policy{}, nil)
}

func TestCreateThenGetProjectState(t *testing.T) {
	s := newTestService()
	created := s.CreateProject("p1", "robot", "vanilla")
	require.True(t, created.OK)

	got := s.GetProjectState()
	require.True(t, got.OK)
	assert.Equal(t, "robot", got.Data.Name)
	assert.Equal(t, created.Revision, got.Revision)
}

func TestAddBoneProducesNewRevision(t *testing.T) {
	s := newTestService()
	created := s.CreateProject("p1", "robot", "vanilla")

	res := s.AddBone(map[string]interface{}{"ifRevision": created.Revision}, AddBonePayload{Name: "root"})
	require.True(t, res.OK)
	assert.NotEqual(t, created.Revision, res.Revision, "successful mutation must change the revision")
}

func TestAddBoneRevisionMismatch(t *testing.T) {
	s := newTestService()
	s.CreateProject("p1", "robot", "vanilla")

	res := s.AddBone(map[string]interface{}{"ifRevision": "stale-revision"}, AddBonePayload{Name: "root"})
	require.False(t, res.OK)
	assert.Equal(t, ErrInvalidState, res.Error.Code)
	assert.Equal(t, "revision_mismatch", res.Error.Details["reason"])
}

func TestAddBoneRequiredRevisionMissing(t *testing.T) {
	s := New(nil, Policy{RequireRevision: true}, nil)
	s.CreateProject("p1", "robot", "vanilla")

	res := s.AddBone(map[string]interface{}{}, AddBonePayload{Name: "root"})
	require.False(t, res.OK)
	assert.Equal(t, "revision_required", res.Error.Details["reason"])
}

func TestAddBoneNoActiveProject(t *testing.T) {
	s := newTestService()
	res := s.AddBone(map[string]interface{}{}, AddBonePayload{Name: "root"})
	require.False(t, res.OK)
	assert.Equal(t, "no_active_project", res.Error.Details["reason"])
}

func TestAddDuplicateBoneIsNoChange(t *testing.T) {
	s := newTestService()
	created := s.CreateProject("p1", "robot", "vanilla")
	first := s.AddBone(map[string]interface{}{"ifRevision": created.Revision}, AddBonePayload{Name: "root"})
	require.True(t, first.OK)

	second := s.AddBone(map[string]interface{}{"ifRevision": first.Revision}, AddBonePayload{Name: "root"})
	require.False(t, second.OK)
	assert.Equal(t, ErrNoChange, second.Error.Code)
}

type fakeLiveAdapter struct {
	snap   *project.Snapshot
	status string
}

func (f fakeLiveAdapter) LiveSnapshot() (*project.Snapshot, string, bool) {
	return f.snap, f.status, true
}

func TestAutoAttachActiveProjectFromLiveAdapter(t *testing.T) {
	live := fakeLiveAdapter{snap: &project.Snapshot{ID: "p1", Name: "from-editor"}, status: "available"}
	s := New(live, Policy{AutoAttachActiveProject: true}, nil)

	res := s.GetProjectState()
	require.True(t, res.OK)
	assert.Equal(t, "from-editor", res.Data.Name)
}

func TestPreflightTextureIsIdempotent(t *testing.T) {
	s := newTestService()
	created := s.CreateProject("p1", "robot", "vanilla")
	bone := s.AddBone(map[string]interface{}{"ifRevision": created.Revision}, AddBonePayload{Name: "root"})
	require.True(t, bone.OK)

	cube := s.AddCube(map[string]interface{}{"ifRevision": bone.Revision}, AddCubePayload{Name: "torso", Bone: "root"})
	require.True(t, cube.OK)

	first := s.PreflightTexture(false)
	second := s.PreflightTexture(false)
	require.True(t, first.OK)
	require.True(t, second.OK)
	assert.Equal(t, first.Data.UVUsageID, second.Data.UVUsageID)
}

func TestPaintRejectsStaleUVUsageID(t *testing.T) {
	s := newTestService()
	created := s.CreateProject("p1", "robot", "vanilla")
	bone := s.AddBone(map[string]interface{}{"ifRevision": created.Revision}, AddBonePayload{Name: "root"})
	cube := s.AddCube(map[string]interface{}{"ifRevision": bone.Revision}, AddCubePayload{Name: "torso", Bone: "root"})
	require.True(t, cube.OK)

	preflight := s.PreflightTexture(false)
	require.True(t, preflight.OK)

	// Mutate UV out from under the cached uvUsageId.
	s.SetFaceUV(map[string]interface{}{"ifRevision": cube.Revision}, "torso", "north", project.FaceUV{0, 0, 8, 8})

	res := s.SetFaceUV(map[string]interface{}{"uvUsageId": preflight.Data.UVUsageID}, "torso", "south", project.FaceUV{0, 0, 4, 4})
	require.False(t, res.OK)
	assert.Equal(t, "uv_usage_changed", res.Error.Details["reason"])
}
