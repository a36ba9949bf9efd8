// Package worker implements the Worker (C10): a single long-running loop per goroutine
// that claims jobs from the Persistent Pipeline Store and dispatches them to a
// tool-calling processor, completing or failing each job before claiming the next.
// Narrowed from the teacher's generic multi-queue Pool/Worker/Queue/JobProcessor shape
// down to the single queuedJobIds FIFO the pipeline store exposes.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ashfox/gateway/pipeline"
	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/toolservice"
)

// Backend is the narrow tool-invocation capability the worker borrows (ownership rule:
// "Worker borrows BackendPort but does not own session state").
type Backend interface {
	EnsureProject(id, name, format string) toolservice.UsecaseResult[*project.Snapshot]
	AddBone(payload map[string]interface{}, args toolservice.AddBonePayload) toolservice.UsecaseResult[*project.Snapshot]
	AddAnimation(payload map[string]interface{}, a project.Animation) toolservice.UsecaseResult[*project.Snapshot]
	ImportTexture(payload map[string]interface{}, args toolservice.ImportTexturePayload) toolservice.UsecaseResult[*project.Snapshot]
	PreflightTexture(includeUsage bool) toolservice.UsecaseResult[toolservice.PreflightTextureResult]
	GetProjectState() toolservice.UsecaseResult[*project.Snapshot]
	Export(format string) toolservice.UsecaseResult[toolservice.ExportResult]
}

// PollInterval is how long a loop waits between empty claimNextJob calls.
const PollInterval = 2 * time.Second

// PreflightConstraints bounds the texture.preflight job's evaluation.
type PreflightConstraints struct {
	MaxDimension        int
	AllowNonPowerOfTwo  bool
}

// Pool runs a fixed number of single-flight claim loops against one Store/Backend pair
// (spec: "Loop, single-flight per tick" — each worker processes one job to completion
// before claiming the next).
type Pool struct {
	store       *pipeline.Store
	backend     Backend
	constraints PreflightConstraints
	workers     int
	stop        chan struct{}
	logger      *logrus.Entry
}

// New builds a Pool of workerCount independent claim loops. The pool logs through a
// private logrus instance until WithLogger attaches the caller's entry.
func New(store *pipeline.Store, backend Backend, constraints PreflightConstraints, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		store:       store,
		backend:     backend,
		constraints: constraints,
		workers:     workerCount,
		stop:        make(chan struct{}),
		logger:      logrus.NewEntry(logrus.New()),
	}
}

// WithLogger attaches the *logrus.Entry every worker goroutine logs through, built once
// at startup by cli and passed explicitly rather than read from a global.
func (p *Pool) WithLogger(logger *logrus.Entry) *Pool {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Start launches each worker's loop in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		workerID := pipeline.NewOwnerID()
		go p.loop(ctx, workerID)
	}
}

// Stop signals every loop to exit once its current iteration finishes.
func (p *Pool) Stop() {
	close(p.stop)
}

func (p *Pool) loop(ctx context.Context, workerID string) {
	logger := p.logger.WithField("workerId", workerID)
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.ClaimNextJob(ctx, workerID)
		if err != nil {
			logger.WithError(err).Error("claim failed")
			sleepOrStop(p.stop, PollInterval)
			continue
		}
		if job == nil {
			sleepOrStop(p.stop, PollInterval)
			continue
		}

		jobLog := logger.WithField("jobId", job.ID).WithField("kind", job.Kind)
		jobLog.Info("job claimed")

		result, procErr := p.process(job)
		if procErr != nil {
			jobLog.WithError(procErr).Error("job failed")
			if failErr := p.store.FailJob(ctx, job.ID, procErr); failErr != nil {
				jobLog.WithError(failErr).Error("failJob itself failed")
			}
			continue
		}
		if err := p.store.CompleteJob(ctx, job.ID, result); err != nil {
			jobLog.WithError(err).Error("completeJob failed")
		}
	}
}

func sleepOrStop(stop chan struct{}, d time.Duration) {
	select {
	case <-stop:
	case <-time.After(d):
	}
}

func (p *Pool) process(job *pipeline.Job) (map[string]interface{}, error) {
	switch job.Kind {
	case "gltf.convert":
		return p.processGLTFConvert(job)
	case "texture.preflight":
		return p.processTexturePreflight(job)
	default:
		return nil, fmt.Errorf("worker: unknown job kind %q", job.Kind)
	}
}

// processGLTFConvert materializes the optional bone/texture/animation payload
// best-effort, then exports (spec §4.8). A failed bone, animation or texture step is
// logged and does not fail the job; a failure of ensure_project, export or the final
// get_project_state read does.
func (p *Pool) processGLTFConvert(job *pipeline.Job) (map[string]interface{}, error) {
	logger := p.logger.WithField("jobId", job.ID)

	name, _ := job.Payload["name"].(string)
	format, _ := job.Payload["format"].(string)
	if ensured := p.backend.EnsureProject(job.ProjectID, name, format); ensured.Error != nil {
		return nil, fmt.Errorf("ensure_project: %w", ensured.Error)
	}

	if bones, ok := job.Payload["bones"].([]interface{}); ok {
		for _, raw := range bones {
			m, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			boneName, _ := m["name"].(string)
			if boneName == "" {
				continue
			}
			if res := p.backend.AddBone(nil, toolservice.AddBonePayload{Name: boneName}); res.Error != nil {
				logger.WithError(res.Error).Warn("ensure-bones: best-effort step failed")
			}
		}
	}

	if animations, ok := job.Payload["animations"].([]interface{}); ok {
		for _, raw := range animations {
			m, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			animName, _ := m["name"].(string)
			if animName == "" {
				continue
			}
			if res := p.backend.AddAnimation(nil, project.Animation{Name: animName}); res.Error != nil {
				logger.WithError(res.Error).Warn("ensure-animations: best-effort step failed")
			}
		}
	}

	if textures, ok := job.Payload["textures"].([]interface{}); ok {
		for _, raw := range textures {
			m, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			texName, _ := m["name"].(string)
			path, _ := m["path"].(string)
			if texName == "" {
				continue
			}
			args := toolservice.ImportTexturePayload{Name: texName}
			if path != "" {
				args.Path = &path
			}
			if res := p.backend.ImportTexture(nil, args); res.Error != nil {
				logger.WithError(res.Error).Warn("ensure-textures: best-effort step failed")
			}
		}
	}

	exported := p.backend.Export(format)
	if exported.Error != nil {
		return nil, fmt.Errorf("export: %w", exported.Error)
	}

	state := p.backend.GetProjectState()
	if state.Error != nil {
		return nil, fmt.Errorf("get_project_state: %w", state.Error)
	}

	return map[string]interface{}{
		"hierarchy":      exported.Data.Hierarchy,
		"animations":     exported.Data.Animations,
		"textureSources": exported.Data.TextureSources,
		"textures":       exported.Data.Textures,
		"output":         exported.Data.Output,
	}, nil
}

// processTexturePreflight runs preflight_texture and evaluates it against the configured
// dimension/power-of-two constraints (spec §4.8).
func (p *Pool) processTexturePreflight(job *pipeline.Job) (map[string]interface{}, error) {
	name, _ := job.Payload["name"].(string)
	format, _ := job.Payload["format"].(string)
	if ensured := p.backend.EnsureProject(job.ProjectID, name, format); ensured.Error != nil {
		return nil, fmt.Errorf("ensure_project: %w", ensured.Error)
	}

	preflight := p.backend.PreflightTexture(true)
	if preflight.Error != nil {
		return nil, fmt.Errorf("preflight_texture: %w", preflight.Error)
	}

	state := p.backend.GetProjectState()
	if state.Error != nil {
		return nil, fmt.Errorf("get_project_state: %w", state.Error)
	}

	var oversized, nonPowerOfTwo []string
	var diagnostics []string
	for _, t := range state.Data.Textures {
		if p.constraints.MaxDimension > 0 && (t.Width > p.constraints.MaxDimension || t.Height > p.constraints.MaxDimension) {
			oversized = append(oversized, t.ID)
			diagnostics = append(diagnostics, fmt.Sprintf("%s exceeds max dimension %d", t.ID, p.constraints.MaxDimension))
		}
		if !p.constraints.AllowNonPowerOfTwo && (!isPowerOfTwo(t.Width) || !isPowerOfTwo(t.Height)) {
			nonPowerOfTwo = append(nonPowerOfTwo, t.ID)
			diagnostics = append(diagnostics, fmt.Sprintf("%s is not power-of-two (%dx%d)", t.ID, t.Width, t.Height))
		}
	}

	status := "ok"
	if len(oversized) > 0 || len(nonPowerOfTwo) > 0 {
		status = "violations"
	}

	return map[string]interface{}{
		"checked":       len(state.Data.Textures),
		"oversized":     oversized,
		"nonPowerOfTwo": nonPowerOfTwo,
		"diagnostics":   diagnostics,
		"status":        status,
		"uvUsageId":     preflight.Data.UVUsageID,
	}, nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
