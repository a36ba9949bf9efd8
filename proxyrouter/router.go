// Package proxyrouter implements the Proxy Router (C5): compound tools that compose
// several Tool Service calls into one client-visible operation, share a per-request
// cache keyed by uvUsageId, and auto-recover from UV usage drift.
package proxyrouter

import (
	"fmt"
	"sync"

	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/toolservice"
)

// Recovery describes an auto-recover action a compound tool took before retrying.
type Recovery struct {
	Reason      string `json:"reason"`
	AutoUVAtlas bool   `json:"autoUvAtlas,omitempty"`
	UVUsageID   string `json:"uvUsageId,omitempty"`
}

// Result is the compound-tool response envelope (spec §4.4): the underlying usecase
// outcome plus optional attached state/diff and recovery metadata.
type Result struct {
	OK       bool                 `json:"ok"`
	Data     interface{}          `json:"data,omitempty"`
	Revision string               `json:"revision,omitempty"`
	State    *project.Snapshot    `json:"state,omitempty"`
	Diff     []string             `json:"diff,omitempty"`
	Error    *toolservice.ToolError `json:"error,omitempty"`
	Recovery *Recovery            `json:"recovery,omitempty"`
}

// requestCache memoizes per-request preflight/UV-usage lookups keyed by uvUsageId, per
// spec §4.4d. It is created fresh per incoming compound-tool call, not process-wide.
type requestCache struct {
	mu        sync.Mutex
	preflight map[string]toolservice.PreflightTextureResult
}

func newRequestCache() *requestCache {
	return &requestCache{preflight: map[string]toolservice.PreflightTextureResult{}}
}

// Router composes toolservice.Service calls into the compound tools spec §4.4 names.
type Router struct {
	svc *toolservice.Service
}

// New builds a Proxy Router over the given Tool Service.
func New(svc *toolservice.Service) *Router {
	return &Router{svc: svc}
}

// Call dispatches a compound tool by name, translating any panic inside the handler to
// ToolError{code:"unknown", details:{reason:"proxy_exception"}} per spec §4.4.
func (r *Router) Call(tool string, payload map[string]interface{}) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{
				Error: &toolservice.ToolError{
					Code:    toolservice.ErrUnknown,
					Message: fmt.Sprintf("panic in proxy handler: %v", rec),
					Details: map[string]interface{}{"reason": "proxy_exception", "tool": tool},
				},
			}
		}
	}()

	cache := newRequestCache()
	attachState := truthy(payload["attachState"])

	switch tool {
	case "apply_texture_spec":
		result = r.applyTextureSpec(payload, cache)
	case "apply_uv_spec":
		result = r.applyUVSpec(payload, cache)
	case "model_pipeline":
		result = r.modelPipeline(payload)
	case "texture_pipeline":
		result = r.texturePipeline(payload, cache)
	case "entity_pipeline":
		result = r.entityPipeline(payload)
	case "render_preview":
		result = r.renderPreview(payload, cache)
	case "validate":
		result = r.validate(payload)
	default:
		result = Result{Error: &toolservice.ToolError{
			Code:    toolservice.ErrUnknown,
			Message: "unknown compound tool",
			Details: map[string]interface{}{"reason": "unknown_tool", "tool": tool},
		}}
	}

	if attachState && result.Error == nil {
		state := r.svc.GetProjectState()
		if state.OK {
			result.State = state.Data
		}
	}
	if since, ok := payload["sinceRevision"].(string); ok && result.Error == nil {
		if before := r.svc.SnapshotAt(since); before != nil {
			current := r.svc.GetProjectState()
			if current.OK {
				result.Diff = diffSince(before, current.Data)
			}
		}
	}
	return result
}

func truthy(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
