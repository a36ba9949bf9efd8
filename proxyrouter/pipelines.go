package proxyrouter

import (
	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/toolservice"
)

// applyTextureSpec paints a single cube face under the supplied uvUsageId, auto-
// recovering via auto_uv_atlas+preflight_texture on a uv_usage_changed failure when
// autoRecover is set (spec §4.4c, scenario 3).
func (r *Router) applyTextureSpec(payload map[string]interface{}, cache *requestCache) Result {
	cube, _ := payload["cube"].(string)
	face, _ := payload["face"].(string)
	uv := faceUVFromPayload(payload["uv"])
	autoRecover := truthy(payload["autoRecover"])

	res := r.svc.SetFaceUV(payload, cube, face, uv)
	if res.OK {
		return Result{OK: true, Data: res.Data, Revision: res.Revision}
	}
	if !autoRecover || res.Error == nil || res.Error.Details["reason"] != "uv_usage_changed" {
		return Result{Error: res.Error}
	}

	atlas := r.svc.AutoUVAtlas(payload, true)
	if !atlas.OK {
		return Result{Error: atlas.Error}
	}
	preflight := r.svc.PreflightTexture(false)
	if !preflight.OK {
		return Result{Error: preflight.Error}
	}
	cache.mu.Lock()
	cache.preflight[preflight.Data.UVUsageID] = preflight.Data
	cache.mu.Unlock()

	retryPayload := map[string]interface{}{"ifRevision": atlas.Revision}
	retry := r.svc.SetFaceUV(retryPayload, cube, face, uv)
	if !retry.OK {
		return Result{Error: retry.Error}
	}
	return Result{
		OK:       true,
		Data:     retry.Data,
		Revision: retry.Revision,
		Recovery: &Recovery{Reason: "uv_usage_changed", AutoUVAtlas: true, UVUsageID: preflight.Data.UVUsageID},
	}
}

// applyUVSpec applies a batch of face UV edits under a single ifRevision boundary,
// chaining each successive call's revision into the next (spec §4.4a).
func (r *Router) applyUVSpec(payload map[string]interface{}, cache *requestCache) Result {
	edits, _ := payload["edits"].([]interface{})
	rev, _ := payload["ifRevision"].(string)

	var last *project.Snapshot
	for _, raw := range edits {
		edit, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		cube, _ := edit["cube"].(string)
		face, _ := edit["face"].(string)
		uv := faceUVFromPayload(edit["uv"])

		res := r.svc.SetFaceUV(map[string]interface{}{"ifRevision": rev}, cube, face, uv)
		if !res.OK {
			return Result{Error: res.Error}
		}
		rev = res.Revision
		last = res.Data
	}
	return Result{OK: true, Data: last, Revision: rev}
}

// modelPipeline runs a sequence of bone/cube creations under a single starting
// ifRevision, chaining revisions between steps (spec §4.4a).
func (r *Router) modelPipeline(payload map[string]interface{}) Result {
	rev, _ := payload["ifRevision"].(string)

	bones, _ := payload["bones"].([]interface{})
	for _, raw := range bones {
		spec, _ := raw.(map[string]interface{})
		name, _ := spec["name"].(string)
		res := r.svc.AddBone(map[string]interface{}{"ifRevision": rev}, toolservice.AddBonePayload{Name: name})
		if !res.OK && res.Error.Code != toolservice.ErrNoChange {
			return Result{Error: res.Error}
		}
		if res.OK {
			rev = res.Revision
		}
	}

	cubes, _ := payload["cubes"].([]interface{})
	var last *project.Snapshot
	for _, raw := range cubes {
		spec, _ := raw.(map[string]interface{})
		name, _ := spec["name"].(string)
		bone, _ := spec["bone"].(string)
		res := r.svc.AddCube(map[string]interface{}{"ifRevision": rev}, toolservice.AddCubePayload{Name: name, Bone: bone})
		if !res.OK && res.Error.Code != toolservice.ErrNoChange {
			return Result{Error: res.Error}
		}
		if res.OK {
			rev = res.Revision
			last = res.Data
		}
	}

	return Result{OK: true, Data: last, Revision: rev}
}

// texturePipeline imports a texture then recomputes the UV atlas and preflight summary
// (spec §4.4a).
func (r *Router) texturePipeline(payload map[string]interface{}, cache *requestCache) Result {
	id, _ := payload["id"].(string)
	name, _ := payload["name"].(string)
	width, _ := payload["width"].(float64)
	height, _ := payload["height"].(float64)

	imported := r.svc.ImportTexture(payload, toolservice.ImportTexturePayload{
		ID: id, Name: name, Width: int(width), Height: int(height),
	})
	if !imported.OK {
		return Result{Error: imported.Error}
	}

	atlas := r.svc.AutoUVAtlas(map[string]interface{}{"ifRevision": imported.Revision}, true)
	if !atlas.OK {
		return Result{Error: atlas.Error}
	}

	preflight := r.svc.PreflightTexture(true)
	if !preflight.OK {
		return Result{Error: preflight.Error}
	}
	cache.mu.Lock()
	cache.preflight[preflight.Data.UVUsageID] = preflight.Data
	cache.mu.Unlock()

	return Result{OK: true, Data: preflight.Data, Revision: atlas.Revision}
}

// entityPipeline creates one named bone plus an attached cube in a single call (spec
// §4.4a).
func (r *Router) entityPipeline(payload map[string]interface{}) Result {
	name, _ := payload["name"].(string)
	rev, _ := payload["ifRevision"].(string)

	bone := r.svc.AddBone(map[string]interface{}{"ifRevision": rev}, toolservice.AddBonePayload{Name: name})
	if !bone.OK && bone.Error.Code != toolservice.ErrNoChange {
		return Result{Error: bone.Error}
	}
	if bone.OK {
		rev = bone.Revision
	}

	cube := r.svc.AddCube(map[string]interface{}{"ifRevision": rev}, toolservice.AddCubePayload{Name: name, Bone: name})
	if !cube.OK && cube.Error.Code != toolservice.ErrNoChange {
		return Result{Error: cube.Error}
	}
	if cube.OK {
		return Result{OK: true, Data: cube.Data, Revision: cube.Revision}
	}
	return Result{OK: true, Revision: rev}
}

// renderPreview is read-only: it reports the current project state plus a preflight
// summary, with no mutation and no ifRevision requirement.
func (r *Router) renderPreview(payload map[string]interface{}, cache *requestCache) Result {
	state := r.svc.GetProjectState()
	if !state.OK {
		return Result{Error: state.Error}
	}
	preflight := r.svc.PreflightTexture(truthy(payload["includeUsage"]))
	if !preflight.OK {
		return Result{Error: preflight.Error}
	}
	cache.mu.Lock()
	cache.preflight[preflight.Data.UVUsageID] = preflight.Data
	cache.mu.Unlock()

	return Result{OK: true, Data: preflight.Data, Revision: state.Revision, State: state.Data}
}

// validate delegates to the Tool Service's cross-check usecase.
func (r *Router) validate(payload map[string]interface{}) Result {
	maxCubes, _ := payload["maxCubes"].(float64)
	res := r.svc.Validate(toolservice.ValidateLimits{MaxCubes: int(maxCubes)})
	if !res.OK {
		return Result{Error: res.Error}
	}
	return Result{OK: true, Data: res.Data, Revision: res.Revision}
}

// faceUVFromPayload decodes a JSON-decoded [4]number array into a project.FaceUV,
// tolerating a short or malformed array (each missing slot stays 0).
func faceUVFromPayload(raw interface{}) project.FaceUV {
	arr, _ := raw.([]interface{})
	var uv project.FaceUV
	for i := 0; i < len(arr) && i < 4; i++ {
		if f, ok := arr[i].(float64); ok {
			uv[i] = f
		}
	}
	return uv
}
