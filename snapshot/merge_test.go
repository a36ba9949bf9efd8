package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashfox/gateway/project"
)

func TestMergeNilLiveReturnsSessionUnchanged(t *testing.T) {
	session := &project.Snapshot{ID: "p1", Name: "session-name", Format: "vanilla"}
	merged := Merge(session, nil, PolicyHybrid, nil)

	assert.Equal(t, session.Name, merged.Name)
	assert.Equal(t, session.Format, merged.Format)
}

func TestMergeSessionPolicyIgnoresLive(t *testing.T) {
	session := &project.Snapshot{ID: "p1", Name: "session-name"}
	live := &project.Snapshot{ID: "p1", Name: "live-name"}

	merged := Merge(session, live, PolicySession, nil)
	assert.Equal(t, "session-name", merged.Name)
}

func TestMergeLivePolicyFallsBackForMissingFields(t *testing.T) {
	session := &project.Snapshot{ID: "p1", Name: "session-name", Format: "geckolib"}
	live := &project.Snapshot{ID: "p1"}

	merged := Merge(session, live, PolicyLive, nil)
	assert.Equal(t, "session-name", merged.Name)
	assert.Equal(t, "geckolib", merged.Format)
}

func TestMergeHybridTexturesPreserveSessionPath(t *testing.T) {
	path := "/tmp/tex.png"
	session := &project.Snapshot{
		Textures: []project.Texture{{ID: "t1", Name: "skin", Path: &path, Width: 64, Height: 64}},
	}
	live := &project.Snapshot{
		Textures: []project.Texture{{ID: "t1", Name: "skin", Width: 64, Height: 64}},
	}

	merged := Merge(session, live, PolicyHybrid, nil)
	assert.Len(t, merged.Textures, 1)
	assert.NotNil(t, merged.Textures[0].Path)
	assert.Equal(t, path, *merged.Textures[0].Path)
}

func TestNormalizeFormatBySubstring(t *testing.T) {
	session := &project.Snapshot{}
	live := &project.Snapshot{FormatID: "bedrock-geckolib-v2"}

	merged := Merge(session, live, PolicyLive, nil)
	assert.Equal(t, "geckolib", merged.Format)
}

func TestNormalizeFormatOverrideTableWinsOverKnownFormats(t *testing.T) {
	session := &project.Snapshot{}
	live := &project.Snapshot{FormatID: "custom-vanilla-variant"}

	merged := Merge(session, live, PolicyLive, map[string]string{"custom-vanilla-variant": "animated_java"})
	assert.Equal(t, "animated_java", merged.Format)
}
