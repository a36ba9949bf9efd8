package mcprouter

import (
	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/proxyrouter"
	"github.com/ashfox/gateway/toolservice"
)

// toolResult is the common shape every tool call (direct or compound) reduces to before
// being wrapped in the JSON-RPC content/structuredContent envelope (spec §6).
type toolResult struct {
	OK       bool
	Data     interface{}
	Revision string
	State    *project.Snapshot
	Diff     []string
	Error    *toolservice.ToolError
}

// compoundTools is the set of tool names the Proxy Router owns (spec §4.4); every other
// recognized name is dispatched straight to the Tool Service.
var compoundTools = map[string]bool{
	"apply_texture_spec": true,
	"apply_uv_spec":      true,
	"model_pipeline":     true,
	"texture_pipeline":   true,
	"entity_pipeline":    true,
	"render_preview":     true,
	"validate":           true,
}

// callTool dispatches name to the Proxy Router or the Tool Service directly, translating
// a bad/unknown payload into ErrInvalidPayload rather than panicking (schema validation
// upstream should have already rejected most of these, this is the last line of defense).
func callTool(svc *toolservice.Service, proxy *proxyrouter.Router, name string, args map[string]interface{}) (toolResult, bool) {
	if compoundTools[name] {
		r := proxy.Call(name, args)
		return toolResult{OK: r.OK, Data: r.Data, Revision: r.Revision, State: r.State, Diff: r.Diff, Error: r.Error}, true
	}

	switch name {
	case "create_project":
		id, _ := args["id"].(string)
		pname, _ := args["name"].(string)
		format, _ := args["format"].(string)
		return fromUsecase(svc.CreateProject(id, pname, format)), true

	case "ensure_project":
		id, _ := args["id"].(string)
		pname, _ := args["name"].(string)
		format, _ := args["format"].(string)
		return fromUsecase(svc.EnsureProject(id, pname, format)), true

	case "close_project":
		res := svc.CloseProject()
		return toolResult{OK: res.OK, Error: res.Error}, true

	case "get_project_state":
		return fromUsecase(svc.GetProjectState()), true

	case "add_bone":
		pname, _ := args["name"].(string)
		var parent *string
		if p, ok := args["parent"].(string); ok {
			parent = &p
		}
		pivot := vec3FromPayload(args["pivot"])
		visibility, _ := args["visibility"].(bool)
		payload := toolservice.AddBonePayload{Name: pname, Parent: parent, Pivot: pivot, Visibility: visibility}
		return fromUsecase(svc.AddBone(args, payload)), true

	case "delete_bone":
		pname, _ := args["name"].(string)
		return fromUsecase(svc.DeleteBone(args, pname)), true

	case "add_cube":
		pname, _ := args["name"].(string)
		bone, _ := args["bone"].(string)
		payload := toolservice.AddCubePayload{
			Name: pname, Bone: bone,
			From: vec3FromPayload(args["from"]),
			To:   vec3FromPayload(args["to"]),
		}
		return fromUsecase(svc.AddCube(args, payload)), true

	case "set_face_uv":
		cube, _ := args["cube"].(string)
		face, _ := args["face"].(string)
		uv := faceUVFromPayload(args["uv"])
		return fromUsecase(svc.SetFaceUV(args, cube, face, uv)), true

	case "import_texture":
		id, _ := args["id"].(string)
		pname, _ := args["name"].(string)
		width, _ := args["width"].(float64)
		height, _ := args["height"].(float64)
		var path *string
		if p, ok := args["path"].(string); ok {
			path = &p
		}
		payload := toolservice.ImportTexturePayload{ID: id, Name: pname, Width: int(width), Height: int(height), Path: path}
		return fromUsecase(svc.ImportTexture(args, payload)), true

	case "delete_texture":
		id, _ := args["id"].(string)
		return fromUsecase(svc.DeleteTexture(args, id)), true

	case "add_animation":
		anim := animationFromPayload(args)
		return fromUsecase(svc.AddAnimation(args, anim)), true

	case "auto_uv_atlas":
		apply, _ := args["apply"].(bool)
		return fromUsecase(svc.AutoUVAtlas(args, apply)), true

	case "preflight_texture":
		includeUsage, _ := args["includeUsage"].(bool)
		return fromUsecase(svc.PreflightTexture(includeUsage)), true

	case "export":
		format, _ := args["format"].(string)
		return fromUsecase(svc.Export(format)), true

	default:
		return toolResult{}, false
	}
}

// fromUsecase adapts a toolservice.UsecaseResult[T] into the untyped toolResult shape the
// JSON-RPC envelope builder works with.
func fromUsecase[T any](res toolservice.UsecaseResult[T]) toolResult {
	return toolResult{OK: res.OK, Data: res.Data, Revision: res.Revision, Error: res.Error}
}

func vec3FromPayload(raw interface{}) [3]float64 {
	arr, _ := raw.([]interface{})
	var v [3]float64
	for i := 0; i < len(arr) && i < 3; i++ {
		if f, ok := arr[i].(float64); ok {
			v[i] = f
		}
	}
	return v
}

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

func animationFromPayload(args map[string]interface{}) project.Animation {
	id, _ := args["id"].(string)
	name, _ := args["name"].(string)
	length, _ := args["length"].(float64)
	loop, _ := args["loop"].(bool)
	fps, _ := args["fps"].(float64)

	var channels []project.Channel
	if raw, ok := args["channels"].([]interface{}); ok {
		for _, c := range raw {
			m, ok := c.(map[string]interface{})
			if !ok {
				continue
			}
			bone, _ := m["bone"].(string)
			channels = append(channels, project.Channel{Bone: bone})
		}
	}

	return project.Animation{ID: id, Name: name, Length: length, Loop: loop, FPS: fps, Channels: channels}
}
