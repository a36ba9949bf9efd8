package mcprouter

// toolNames is every tool name the router recognizes, direct or compound, in the order
// reported by tools/list.
var toolNames = []string{
	"create_project", "ensure_project", "close_project", "get_project_state",
	"add_bone", "delete_bone", "add_cube", "set_face_uv",
	"import_texture", "delete_texture", "add_animation", "auto_uv_atlas",
	"preflight_texture", "export",
	"apply_texture_spec", "apply_uv_spec", "model_pipeline", "texture_pipeline",
	"entity_pipeline", "render_preview", "validate",
}

// toolDescriptor is one entry of the tools/list result (MCP tool discovery shape).
type toolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema interface{} `json:"inputSchema,omitempty"`
}

// toolDescriptors reports every recognized tool, attaching its schema.Registry entry
// (converted to a minimal JSON Schema-ish shape) when one exists.
func (rt *Router) toolDescriptors() []toolDescriptor {
	out := make([]toolDescriptor, 0, len(toolNames))
	for _, name := range toolNames {
		d := toolDescriptor{Name: name}
		if sch, ok := rt.schemas[name]; ok {
			props := map[string]interface{}{}
			var required []string
			for _, r := range sch.Rules {
				props[r.Path] = map[string]interface{}{"type": string(r.Kind)}
				if r.Required {
					required = append(required, r.Path)
				}
			}
			d.InputSchema = map[string]interface{}{
				"type":       "object",
				"properties": props,
				"required":   required,
			}
		}
		out = append(out, d)
	}
	return out
}
