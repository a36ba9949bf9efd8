package pipeline

import (
	"context"
	"time"
)

// AppendProjectSnapshotEvent assigns the next monotonically-increasing sequence number
// for projectID and appends a "project.snapshot" event carrying snapshotData (spec
// §4.7/§8: "Per-project event sequence strictly increases and is contiguous").
func (st *Store) AppendProjectSnapshotEvent(ctx context.Context, projectID string, snapshotData map[string]interface{}) (uint64, error) {
	var seq uint64
	err := st.Mutate(ctx, func(state *NativePipelineState) error {
		seq = state.ProjectEventCursor[projectID] + 1
		state.ProjectEventCursor[projectID] = seq
		state.Events[projectID] = append(state.Events[projectID], ProjectEvent{
			ProjectID: projectID,
			Seq:       seq,
			Kind:      "project.snapshot",
			Data:      snapshotData,
			CreatedAt: time.Now(),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// GetProjectEventsSince returns projectID's events with seq > lastSeq, in order.
func (st *Store) GetProjectEventsSince(ctx context.Context, projectID string, lastSeq uint64) ([]ProjectEvent, error) {
	state, _, err := st.Read(ctx)
	if err != nil {
		return nil, err
	}
	var out []ProjectEvent
	for _, ev := range state.Events[projectID] {
		if ev.Seq > lastSeq {
			out = append(out, ev)
		}
	}
	return out, nil
}
