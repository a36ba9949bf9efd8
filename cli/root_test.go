package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfox/gateway/config"
	"github.com/ashfox/gateway/pipeline/memstore"
	"github.com/ashfox/gateway/snapshot"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["worker"])
	assert.True(t, names["migrate"])
}

func TestOpenRepositoryMemoryBackendUsesMemstore(t *testing.T) {
	cfg := config.GatewayConfig{NativePipelineBackend: config.PipelineBackendMemory}

	repo, locker, closer, err := openRepository(cfg)
	require.NoError(t, err)
	assert.Nil(t, closer)

	_, okRepo := repo.(*memstore.Repository)
	assert.True(t, okRepo)
	_, okLocker := locker.(*memstore.Locker)
	assert.True(t, okLocker)
}

func TestBuildToolservicePolicyDefaultsToHybridMerge(t *testing.T) {
	policy := buildToolservicePolicy()
	assert.Equal(t, snapshot.PolicyHybrid, policy.MergePolicy)
	assert.False(t, policy.RequireRevision)
	assert.True(t, policy.AutoAttachActiveProject)
}
