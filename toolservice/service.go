package toolservice

import (
	"sync"

	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/revision"
	"github.com/ashfox/gateway/schema"
	"github.com/ashfox/gateway/snapshot"
)

// LiveAdapter is the narrow external-collaborator seam onto the editor host. Per
// spec.md §1, the editor adapter binding is out of scope here; callers inject their own
// implementation (or nil, when no live editor is attached).
type LiveAdapter interface {
	// LiveSnapshot returns the editor's current state and an animations-availability
	// status string ("available"/"unavailable"/""), or ok=false if nothing is attached.
	LiveSnapshot() (snap *project.Snapshot, animationsStatus string, ok bool)
}

// Policy controls the guard chain's revision/active-project behavior (spec §4.3).
type Policy struct {
	RequireRevision         bool
	AutoAttachActiveProject bool
	MergePolicy             snapshot.Policy
	FormatOverrideTable     map[string]string
}

// Service is the process-wide Tool Service: an active Project Session guarded by a
// Revision Store, dispatching named usecases under the spec's guard chain. Modeled on
// statemanager.Manager's single-owner, mutex-guarded map shape, narrowed to one active
// project instead of many tracked operations.
type Service struct {
	mu      sync.Mutex
	active  *project.Snapshot
	revs    *revision.Store
	live    LiveAdapter
	policy  Policy
	schemas map[string]schema.Schema

	// preflightCache memoizes the last computed uvUsageId and its inputs, invalidated
	// whenever a mutating tool succeeds (spec §4.3's "uvUsageId" contract).
	preflightCache *preflightResult
}

// New builds a Tool Service with no active project.
func New(live LiveAdapter, policy Policy, schemas map[string]schema.Schema) *Service {
	return &Service{
		revs:    revision.New(revision.DefaultCapacity),
		live:    live,
		policy:  policy,
		schemas: schemas,
	}
}

// currentRevision returns the canonical revision of the active project, or "" if none.
func (s *Service) currentRevision() string {
	if s.active == nil {
		return ""
	}
	return revision.Hash(s.active)
}

// guardRevision implements spec §4.3 step 1. ifRevision, when present in payload, is
// compared against the active project's current canonical revision.
func (s *Service) guardRevision(payload map[string]interface{}) *ToolError {
	ifRevision, hasIfRevision := payload["ifRevision"].(string)

	if !hasIfRevision {
		if s.policy.RequireRevision {
			return invalidState("revision_required", "ifRevision is required by policy", nil)
		}
		return nil
	}

	actual := s.currentRevision()
	if ifRevision != actual {
		return invalidState("revision_mismatch", "supplied revision is stale", map[string]interface{}{
			"expected":   ifRevision,
			"actual":     actual,
			"nextActions": []string{"get_project_state", "resupply ifRevision"},
		})
	}
	return nil
}

// guardActiveProject implements spec §4.3 step 2.
func (s *Service) guardActiveProject() *ToolError {
	if s.active != nil {
		return nil
	}
	if s.policy.AutoAttachActiveProject && s.live != nil {
		if live, status, ok := s.live.LiveSnapshot(); ok {
			merged := snapshot.MergeWithLiveStatus(&project.Snapshot{}, snapshot.LiveInput{
				Snapshot:         live,
				AnimationsStatus: status,
			}, s.policy.FormatOverrideTable)
			s.active = merged
			return nil
		}
	}
	return invalidState("no_active_project", "no project is attached", nil)
}

// guardPayload implements spec §4.3 step 3: schema validation against the registered
// schema for tool, when one is registered.
func (s *Service) guardPayload(tool string, payload map[string]interface{}) *ToolError {
	sch, ok := s.schemas[tool]
	if !ok {
		return nil
	}
	res := sch.Validate(payload)
	if !res.OK {
		return invalidPayload(res.Message, map[string]interface{}{"path": res.Path, "reason": res.Reason})
	}
	return nil
}

// mutate runs the full guard chain (revision, active-project, payload) then fn against
// the active project; on success it tracks the new snapshot and returns its revision.
// fn must mutate s.active in place and return a no_change reason ("" if it changed
// something) plus any domain error.
func mutate[T any](s *Service, tool string, payload map[string]interface{}, fn func(active *project.Snapshot) (T, string, error)) UsecaseResult[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardRevision(payload); err != nil {
		return Err[T](err)
	}
	if err := s.guardActiveProject(); err != nil {
		return Err[T](err)
	}
	if err := s.guardPayload(tool, payload); err != nil {
		return Err[T](err)
	}

	data, noChangeReason, err := fn(s.active)
	if err != nil {
		return Err[T](invalidPayload(err.Error(), nil))
	}
	if noChangeReason != "" {
		return Err[T](noChange(noChangeReason))
	}

	after := s.revs.Track(s.active)
	s.preflightCache = nil
	return Ok(data, after)
}

// read runs only the active-project guard (no mutation, no revision tracking) then fn.
func read[T any](s *Service, fn func(active *project.Snapshot) (T, error)) UsecaseResult[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardActiveProject(); err != nil {
		return Err[T](err)
	}
	data, err := fn(s.active)
	if err != nil {
		return Err[T](invalidPayload(err.Error(), nil))
	}
	return Ok(data, revision.Hash(s.active))
}
