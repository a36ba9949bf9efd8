package pipeline

import (
	"context"
	"fmt"
	"time"
)

// LockProject acquires the optional per-project cooperative lock (distinct from the
// store's global mutation lock), refusing if another owner holds an unexpired lock
// (spec §4.7: "Expired locks are collected lazily on read").
func (st *Store) LockProject(ctx context.Context, projectID, owner string, ttl time.Duration) error {
	return st.Mutate(ctx, func(state *NativePipelineState) error {
		existing, held := state.ProjectLocks[projectID]
		if held && existing.Owner != owner && time.Now().Before(existing.ExpiresAt) {
			return fmt.Errorf("pipeline: project %q locked by %q", projectID, existing.Owner)
		}
		state.ProjectLocks[projectID] = ProjectLock{Owner: owner, ExpiresAt: time.Now().Add(ttl)}
		return nil
	})
}

// UnlockProject releases the per-project lock if still held by owner.
func (st *Store) UnlockProject(ctx context.Context, projectID, owner string) error {
	return st.Mutate(ctx, func(state *NativePipelineState) error {
		existing, held := state.ProjectLocks[projectID]
		if !held || existing.Owner != owner {
			return nil
		}
		delete(state.ProjectLocks, projectID)
		return nil
	})
}
