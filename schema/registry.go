package schema

// Registry returns the built-in schema set, keyed by tool name (spec §4.9 "schemas
// describe allowed types, ranges, required fields, enums, arrays"). Tools without an
// entry here (get_project_state, close_project, preflight_texture, render_preview,
// export, validate, model_pipeline) skip payload validation in the guard chain.
func Registry() map[string]Schema {
	schemas := map[string]Schema{
		"create_project": {Tool: "create_project", Rules: []Rule{
			{Path: "id", Kind: KindString, Required: true},
			{Path: "name", Kind: KindString, Required: true},
		}},
		"ensure_project": {Tool: "ensure_project", Rules: []Rule{
			{Path: "id", Kind: KindString, Required: true},
			{Path: "name", Kind: KindString, Required: true},
		}},
		"add_bone": {Tool: "add_bone", Rules: []Rule{
			{Path: "name", Kind: KindString, Required: true},
		}},
		"delete_bone": {Tool: "delete_bone", Rules: []Rule{
			{Path: "name", Kind: KindString, Required: true},
		}},
		"add_cube": {Tool: "add_cube", Rules: []Rule{
			{Path: "name", Kind: KindString, Required: true},
			{Path: "bone", Kind: KindString, Required: true},
			{Path: "from", Kind: KindArray, MinItems: 3, Elem: &Rule{Kind: KindNumber}},
			{Path: "to", Kind: KindArray, MinItems: 3, Elem: &Rule{Kind: KindNumber}},
		}},
		"set_face_uv": {Tool: "set_face_uv", Rules: []Rule{
			{Path: "cube", Kind: KindString, Required: true},
			{Path: "face", Kind: KindEnum, Required: true, Enum: []string{"north", "south", "east", "west", "up", "down"}},
			{Path: "uv", Kind: KindArray, Required: true, MinItems: 4, Elem: &Rule{Kind: KindNumber}},
		}},
		"import_texture": {Tool: "import_texture", Rules: []Rule{
			{Path: "id", Kind: KindString, Required: true},
			{Path: "name", Kind: KindString, Required: true},
			{Path: "width", Kind: KindNumber, Required: true, Min: numPtr(1)},
			{Path: "height", Kind: KindNumber, Required: true, Min: numPtr(1)},
		}},
		"delete_texture": {Tool: "delete_texture", Rules: []Rule{
			{Path: "id", Kind: KindString, Required: true},
		}},
		"add_animation": {Tool: "add_animation", Rules: []Rule{
			{Path: "id", Kind: KindString, Required: true},
			{Path: "name", Kind: KindString, Required: true},
			{Path: "length", Kind: KindNumber, Required: true, Min: numPtr(0)},
			{Path: "fps", Kind: KindNumber, Min: numPtr(1), Max: numPtr(120)},
		}},
		"auto_uv_atlas": {Tool: "auto_uv_atlas", Rules: []Rule{
			{Path: "apply", Kind: KindBool},
		}},
		"apply_texture_spec": {Tool: "apply_texture_spec", Rules: []Rule{
			{Path: "cube", Kind: KindString, Required: true},
			{Path: "face", Kind: KindEnum, Required: true, Enum: []string{"north", "south", "east", "west", "up", "down"}},
			{Path: "uv", Kind: KindArray, Required: true, MinItems: 4, Elem: &Rule{Kind: KindNumber}},
		}},
		"apply_uv_spec": {Tool: "apply_uv_spec", Rules: []Rule{
			{Path: "edits", Kind: KindArray, Required: true, NonEmpty: true},
		}},
		"texture_pipeline": {Tool: "texture_pipeline", Rules: []Rule{
			{Path: "id", Kind: KindString, Required: true},
			{Path: "name", Kind: KindString, Required: true},
			{Path: "width", Kind: KindNumber, Required: true, Min: numPtr(1)},
			{Path: "height", Kind: KindNumber, Required: true, Min: numPtr(1)},
		}},
		"entity_pipeline": {Tool: "entity_pipeline", Rules: []Rule{
			{Path: "name", Kind: KindString, Required: true},
		}},
	}
	return schemas
}

func numPtr(f float64) *float64 { return &f }
