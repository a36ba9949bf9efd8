package toolservice

import (
	"fmt"

	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/revision"
)

// CreateProject starts a fresh, empty active project, replacing any existing one.
func (s *Service) CreateProject(id, name, format string) UsecaseResult[*project.Snapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = &project.Snapshot{ID: id, Name: name, Format: format}
	rev := s.revs.Track(s.active)
	s.preflightCache = nil
	return Ok(s.active.Clone(), rev)
}

// EnsureProject returns the active project if one exists, else creates a fresh one with
// the given id/name (spec §4.3's "ensure" usecase shape).
func (s *Service) EnsureProject(id, name, format string) UsecaseResult[*project.Snapshot] {
	s.mu.Lock()
	if s.active != nil {
		snap := s.active.Clone()
		rev := revision.Hash(s.active)
		s.mu.Unlock()
		return Ok(snap, rev)
	}
	s.mu.Unlock()
	return s.CreateProject(id, name, format)
}

// CloseProject detaches the active project without deleting any revisions.
func (s *Service) CloseProject() UsecaseResult[struct{}] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Err[struct{}](invalidState("no_active_project", "no project is attached", nil))
	}
	s.active = nil
	s.preflightCache = nil
	return Ok(struct{}{}, "")
}

// SnapshotAt returns the cached snapshot for a past revision (or nil if evicted or
// unknown), letting callers compute a diff-since-revision without exposing the Revision
// Store itself.
func (s *Service) SnapshotAt(rev string) *project.Snapshot {
	return s.revs.Get(rev)
}

// GetProjectState returns a clone of the active project and its current revision.
func (s *Service) GetProjectState() UsecaseResult[*project.Snapshot] {
	return read(s, func(active *project.Snapshot) (*project.Snapshot, error) {
		return active.Clone(), nil
	})
}

// AddBonePayload is the decoded arguments for add_bone.
type AddBonePayload struct {
	Name       string
	Parent     *string
	Pivot      [3]float64
	Visibility bool
}

// AddBone appends a bone to the active project under the guard chain.
func (s *Service) AddBone(payload map[string]interface{}, args AddBonePayload) UsecaseResult[*project.Snapshot] {
	return mutate(s, "add_bone", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		if active.BoneByName(args.Name) != nil {
			return nil, "bone_already_exists", nil
		}
		b := project.Bone{ID: args.Name, Name: args.Name, Parent: args.Parent, Pivot: args.Pivot, Visibility: args.Visibility}
		if err := active.AddBone(b); err != nil {
			return nil, "", err
		}
		return active.Clone(), "", nil
	})
}

// DeleteBone removes a bone by name under the guard chain.
func (s *Service) DeleteBone(payload map[string]interface{}, name string) UsecaseResult[*project.Snapshot] {
	return mutate(s, "delete_bone", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		if active.BoneByName(name) == nil {
			return nil, "bone_not_found", nil
		}
		if err := active.DeleteBone(name); err != nil {
			return nil, "", err
		}
		return active.Clone(), "", nil
	})
}

// AddCubePayload is the decoded arguments for add_cube.
type AddCubePayload struct {
	Name string
	Bone string
	From [3]float64
	To   [3]float64
}

// AddCube appends a cube to the active project under the guard chain.
func (s *Service) AddCube(payload map[string]interface{}, args AddCubePayload) UsecaseResult[*project.Snapshot] {
	return mutate(s, "add_cube", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		if active.CubeByName(args.Name) != nil {
			return nil, "cube_already_exists", nil
		}
		c := project.Cube{ID: args.Name, Name: args.Name, Bone: args.Bone, From: args.From, To: args.To, Faces: map[string]project.FaceUV{}}
		if err := active.AddCube(c); err != nil {
			return nil, "", err
		}
		return active.Clone(), "", nil
	})
}

// SetFaceUV updates one cube face's UV rect, enforcing the uvUsageId guard when one is
// supplied in payload (spec §4.3's paint-tool contract).
func (s *Service) SetFaceUV(payload map[string]interface{}, cube, face string, uv project.FaceUV) UsecaseResult[*project.Snapshot] {
	if claimed, ok := payload["uvUsageId"].(string); ok {
		if err := s.CheckUVUsage(claimed); err != nil {
			return Err[*project.Snapshot](err)
		}
	}
	return mutate(s, "set_face_uv", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		if err := active.SetFaceUV(cube, face, uv); err != nil {
			return nil, "", err
		}
		return active.Clone(), "", nil
	})
}

// ImportTexturePayload is the decoded arguments for import_texture.
type ImportTexturePayload struct {
	ID     string
	Name   string
	Width  int
	Height int
	Path   *string
}

// ImportTexture appends a texture under the guard chain.
func (s *Service) ImportTexture(payload map[string]interface{}, args ImportTexturePayload) UsecaseResult[*project.Snapshot] {
	return mutate(s, "import_texture", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		t := project.Texture{ID: args.ID, Name: args.Name, Width: args.Width, Height: args.Height, Path: args.Path}
		if err := active.AddTexture(t); err != nil {
			return nil, "", err
		}
		return active.Clone(), "", nil
	})
}

// DeleteTexture removes a texture by id under the guard chain.
func (s *Service) DeleteTexture(payload map[string]interface{}, id string) UsecaseResult[*project.Snapshot] {
	return mutate(s, "delete_texture", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		if active.TextureByID(id) == nil {
			return nil, "texture_not_found", nil
		}
		if err := active.DeleteTexture(id); err != nil {
			return nil, "", err
		}
		return active.Clone(), "", nil
	})
}

// AddAnimation appends an animation clip under the guard chain.
func (s *Service) AddAnimation(payload map[string]interface{}, a project.Animation) UsecaseResult[*project.Snapshot] {
	return mutate(s, "add_animation", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		if err := active.AddAnimation(a); err != nil {
			return nil, "", err
		}
		return active.Clone(), "", nil
	})
}

// AutoUVAtlas recomputes a non-overlapping UV layout by packing cube faces into
// 16-unit cells, eight per row, left-to-right, top-to-bottom; texture sizes are not
// consulted. When apply is false it returns the current snapshot unchanged and computes
// no layout.
func (s *Service) AutoUVAtlas(payload map[string]interface{}, apply bool) UsecaseResult[*project.Snapshot] {
	if !apply {
		return read(s, func(active *project.Snapshot) (*project.Snapshot, error) {
			return active.Clone(), nil
		})
	}
	return mutate(s, "auto_uv_atlas", payload, func(active *project.Snapshot) (*project.Snapshot, string, error) {
		const cell = 16.0
		col, row := 0.0, 0.0
		const perRow = 8.0
		for i := range active.Cubes {
			faces := make([]string, 0, len(active.Cubes[i].Faces))
			for face := range active.Cubes[i].Faces {
				faces = append(faces, face)
			}
			for _, face := range faces {
				active.Cubes[i].Faces[face] = project.FaceUV{col * cell, row * cell, col*cell + cell, row*cell + cell}
				col++
				if col >= perRow {
					col = 0
					row++
				}
			}
		}
		return active.Clone(), "", nil
	})
}

// ValidationIssue is one violation found by Validate.
type ValidationIssue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ValidateLimits bounds checked by Validate (spec §4.3's Validate usecase).
type ValidateLimits struct {
	MaxCubes         int
	MaxTextureWidth  int
	MaxTextureHeight int
}

// Validate cross-checks the active project against limits and internal consistency
// (duplicate names, orphan references, oversize textures, UV rects whose min corner
// exceeds the max corner (reported as uv_out_of_bounds; UVs are not checked against
// texture size), animation length), per spec §4.3.
func (s *Service) Validate(limits ValidateLimits) UsecaseResult[[]ValidationIssue] {
	return read(s, func(active *project.Snapshot) ([]ValidationIssue, error) {
		var issues []ValidationIssue

		if limits.MaxCubes > 0 && len(active.Cubes) > limits.MaxCubes {
			issues = append(issues, ValidationIssue{Path: "cubes", Reason: "max_cubes_exceeded"})
		}

		seenCube := map[string]bool{}
		for _, c := range active.Cubes {
			if seenCube[c.Name] {
				issues = append(issues, ValidationIssue{Path: "cubes." + c.Name, Reason: "duplicate_name"})
			}
			seenCube[c.Name] = true
			if active.BoneByName(c.Bone) == nil {
				issues = append(issues, ValidationIssue{Path: "cubes." + c.Name + ".bone", Reason: "orphan_reference"})
			}
			for face, uv := range c.Faces {
				if uv[0] > uv[2] || uv[1] > uv[3] {
					issues = append(issues, ValidationIssue{Path: fmt.Sprintf("cubes.%s.faces.%s", c.Name, face), Reason: "uv_out_of_bounds"})
				}
			}
		}

		for _, t := range active.Textures {
			if limits.MaxTextureWidth > 0 && t.Width > limits.MaxTextureWidth {
				issues = append(issues, ValidationIssue{Path: "textures." + t.ID, Reason: "oversize_texture"})
			}
			if limits.MaxTextureHeight > 0 && t.Height > limits.MaxTextureHeight {
				issues = append(issues, ValidationIssue{Path: "textures." + t.ID, Reason: "oversize_texture"})
			}
		}

		for _, a := range active.Animations {
			if a.Length < 0 {
				issues = append(issues, ValidationIssue{Path: "animations." + a.ID, Reason: "invalid_animation_length"})
			}
		}

		if err := active.ValidateHierarchy(); err != nil {
			issues = append(issues, ValidationIssue{Path: "bones", Reason: "mesh_integrity"})
		}

		return issues, nil
	})
}

// ExportResult is the assembled output of the export usecase (spec §4.8's gltf.convert
// job result shape: "{hierarchy, animations, textureSources, textures, output}").
type ExportResult struct {
	Hierarchy      []project.Bone      `json:"hierarchy"`
	Animations     []project.Animation `json:"animations"`
	TextureSources []string            `json:"textureSources"`
	Textures       []project.Texture   `json:"textures"`
	Output         map[string]interface{} `json:"output"`
}

// Export assembles the active project's hierarchy/animations/textures into the result
// shape the worker's gltf.convert job returns, without mutating the project.
func (s *Service) Export(format string) UsecaseResult[ExportResult] {
	return read(s, func(active *project.Snapshot) (ExportResult, error) {
		sources := make([]string, 0, len(active.Textures))
		for _, t := range active.Textures {
			if t.Path != nil {
				sources = append(sources, *t.Path)
			} else if t.ContentHash != nil {
				sources = append(sources, *t.ContentHash)
			}
		}
		return ExportResult{
			Hierarchy:      append([]project.Bone(nil), active.Bones...),
			Animations:     append([]project.Animation(nil), active.Animations...),
			TextureSources: sources,
			Textures:       append([]project.Texture(nil), active.Textures...),
			Output: map[string]interface{}{
				"projectId": active.ID,
				"format":    format,
				"cubeCount": len(active.Cubes),
				"boneCount": len(active.Bones),
			},
		}, nil
	})
}
