package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmitJob appends a new queued job for projectID and returns its id (spec §4.7's
// "submitJob appends to queuedJobIds").
func (st *Store) SubmitJob(ctx context.Context, projectID, kind string, payload map[string]interface{}) (string, error) {
	id := uuid.NewString()
	err := st.Mutate(ctx, func(state *NativePipelineState) error {
		state.Jobs[id] = Job{
			ID:        id,
			Kind:      kind,
			ProjectID: projectID,
			Payload:   payload,
			Status:    JobQueued,
			CreatedAt: time.Now(),
		}
		state.QueuedJobIDs = append(state.QueuedJobIDs, id)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ClaimNextJob atomically pops the head of the FIFO queue, flips it to running, and
// stamps workerId/startedAt (spec §4.7/§8: "claims are atomic under the lock — no two
// workers see the same job").
func (st *Store) ClaimNextJob(ctx context.Context, workerID string) (*Job, error) {
	var claimed *Job

	err := st.Mutate(ctx, func(state *NativePipelineState) error {
		for i, id := range state.QueuedJobIDs {
			job, ok := state.Jobs[id]
			if !ok || job.Status != JobQueued {
				continue
			}
			now := time.Now()
			job.Status = JobRunning
			job.WorkerID = workerID
			job.StartedAt = &now
			state.Jobs[id] = job
			state.QueuedJobIDs = append(state.QueuedJobIDs[:i:i], state.QueuedJobIDs[i+1:]...)
			claimed = &job
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// CompleteJob transitions a running job to completed, stamps completedAt, and appends a
// project event.
func (st *Store) CompleteJob(ctx context.Context, jobID string, result map[string]interface{}) error {
	return st.finishJob(ctx, jobID, JobCompleted, result, "")
}

// FailJob transitions a running job to failed, stamps completedAt, and appends a project
// event. Spec §4.8: "If failJob itself throws, log and continue" — callers are expected
// to treat a FailJob error as non-fatal to the worker loop.
func (st *Store) FailJob(ctx context.Context, jobID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return st.finishJob(ctx, jobID, JobFailed, nil, msg)
}

func (st *Store) finishJob(ctx context.Context, jobID string, status JobStatus, result map[string]interface{}, errMsg string) error {
	var projectID string
	err := st.Mutate(ctx, func(state *NativePipelineState) error {
		job, ok := state.Jobs[jobID]
		if !ok {
			return fmt.Errorf("pipeline: job %q not found", jobID)
		}
		now := time.Now()
		job.Status = status
		job.Result = result
		job.Error = errMsg
		job.CompletedAt = &now
		state.Jobs[jobID] = job
		projectID = job.ProjectID

		seq := state.ProjectEventCursor[projectID] + 1
		state.ProjectEventCursor[projectID] = seq
		state.Events[projectID] = append(state.Events[projectID], ProjectEvent{
			ProjectID: projectID,
			Seq:       seq,
			Kind:      "job." + string(status),
			Data:      map[string]interface{}{"jobId": jobID, "kind": job.Kind},
			CreatedAt: now,
		})
		return nil
	})
	return err
}
