package project

import "fmt"

// AddBone appends a bone after checking id/name uniqueness and parent validity. The
// caller (toolservice) is responsible for the revision guard; this method only enforces
// the data-model invariants from spec §3.
func (s *Snapshot) AddBone(b Bone) error {
	if s.BoneByName(b.Name) != nil {
		return fmt.Errorf("bone name %q already in use", b.Name)
	}
	for _, existing := range s.Bones {
		if existing.ID == b.ID {
			return fmt.Errorf("bone id %q already in use", b.ID)
		}
	}
	if b.Parent != nil && s.BoneByName(*b.Parent) == nil {
		return fmt.Errorf("unknown parent bone %q", *b.Parent)
	}
	s.Bones = append(s.Bones, b)
	return s.ValidateHierarchy()
}

// UpdateBone merges non-zero fields of patch into the named bone.
func (s *Snapshot) UpdateBone(name string, patch Bone) error {
	b := s.BoneByName(name)
	if b == nil {
		return fmt.Errorf("bone %q not found", name)
	}
	if patch.Parent != nil {
		if *patch.Parent != "" && s.BoneByName(*patch.Parent) == nil {
			return fmt.Errorf("unknown parent bone %q", *patch.Parent)
		}
		b.Parent = patch.Parent
	}
	if patch.Pivot != [3]float64{} {
		b.Pivot = patch.Pivot
	}
	if patch.Rotation != nil {
		b.Rotation = patch.Rotation
	}
	if patch.Scale != nil {
		b.Scale = patch.Scale
	}
	return s.ValidateHierarchy()
}

// DeleteBone removes a bone by name, refusing if any cube or bone still references it.
func (s *Snapshot) DeleteBone(name string) error {
	for _, c := range s.Cubes {
		if c.Bone == name {
			return fmt.Errorf("bone %q still referenced by cube %q", name, c.Name)
		}
	}
	for _, b := range s.Bones {
		if b.Parent != nil && *b.Parent == name {
			return fmt.Errorf("bone %q still referenced as parent by bone %q", name, b.Name)
		}
	}
	kept := s.Bones[:0]
	found := false
	for _, b := range s.Bones {
		if b.Name == name {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return fmt.Errorf("bone %q not found", name)
	}
	s.Bones = kept
	return nil
}

// AddCube appends a cube, requiring its referenced bone and well-formed UV rects.
func (s *Snapshot) AddCube(c Cube) error {
	if s.CubeByName(c.Name) != nil {
		return fmt.Errorf("cube name %q already in use", c.Name)
	}
	if s.BoneByName(c.Bone) == nil {
		return fmt.Errorf("unknown bone %q", c.Bone)
	}
	if err := validateFaces(c.Faces); err != nil {
		return err
	}
	s.Cubes = append(s.Cubes, c)
	return nil
}

// UpdateCube merges patch's face UVs into the named cube's face map and replaces From/To
// with patch's values when those are non-zero.
func (s *Snapshot) UpdateCube(name string, patch Cube) error {
	c := s.CubeByName(name)
	if c == nil {
		return fmt.Errorf("cube %q not found", name)
	}
	if len(patch.Faces) > 0 {
		if err := validateFaces(patch.Faces); err != nil {
			return err
		}
		for face, uv := range patch.Faces {
			if c.Faces == nil {
				c.Faces = map[string]FaceUV{}
			}
			c.Faces[face] = uv
		}
	}
	if patch.From != [3]float64{} {
		c.From = patch.From
	}
	if patch.To != [3]float64{} {
		c.To = patch.To
	}
	return nil
}

// DeleteCube removes a cube by name.
func (s *Snapshot) DeleteCube(name string) error {
	kept := s.Cubes[:0]
	found := false
	for _, c := range s.Cubes {
		if c.Name == name {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("cube %q not found", name)
	}
	s.Cubes = kept
	return nil
}

// SetFaceUV updates a single face's UV rect on a cube, validating rect order.
func (s *Snapshot) SetFaceUV(cubeName, face string, uv FaceUV) error {
	c := s.CubeByName(cubeName)
	if c == nil {
		return fmt.Errorf("cube %q not found", cubeName)
	}
	if uv[0] > uv[2] || uv[1] > uv[3] {
		return fmt.Errorf("face %q UV rect out of order", face)
	}
	if c.Faces == nil {
		c.Faces = map[string]FaceUV{}
	}
	c.Faces[face] = uv
	return nil
}

func validateFaces(faces map[string]FaceUV) error {
	for face, uv := range faces {
		if uv[0] > uv[2] || uv[1] > uv[3] {
			return fmt.Errorf("face %q UV rect out of order", face)
		}
	}
	return nil
}

// AddTexture appends a texture, requiring positive dimensions and a unique id/name.
func (s *Snapshot) AddTexture(t Texture) error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("texture %q dimensions must be positive", t.Name)
	}
	for _, existing := range s.Textures {
		if existing.ID == t.ID {
			return fmt.Errorf("texture id %q already in use", t.ID)
		}
		if existing.Name == t.Name {
			return fmt.Errorf("texture name %q already in use", t.Name)
		}
	}
	s.Textures = append(s.Textures, t)
	return nil
}

// UpdateTexture merges non-zero fields of patch into the named texture.
func (s *Snapshot) UpdateTexture(id string, patch Texture) error {
	t := s.TextureByID(id)
	if t == nil {
		return fmt.Errorf("texture %q not found", id)
	}
	if patch.Width > 0 {
		t.Width = patch.Width
	}
	if patch.Height > 0 {
		t.Height = patch.Height
	}
	if patch.Path != nil {
		t.Path = patch.Path
	}
	if patch.ContentHash != nil {
		t.ContentHash = patch.ContentHash
	}
	if patch.DataURI != nil {
		t.DataURI = patch.DataURI
	}
	return nil
}

// DeleteTexture removes a texture by id.
func (s *Snapshot) DeleteTexture(id string) error {
	kept := s.Textures[:0]
	found := false
	for _, t := range s.Textures {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return fmt.Errorf("texture %q not found", id)
	}
	s.Textures = kept
	return nil
}

// AddAnimation appends an animation clip, requiring fps > 0 and length >= 0.
func (s *Snapshot) AddAnimation(a Animation) error {
	if a.FPS <= 0 {
		return fmt.Errorf("animation %q fps must be positive", a.Name)
	}
	if a.Length < 0 {
		return fmt.Errorf("animation %q length must be non-negative", a.Name)
	}
	for _, existing := range s.Animations {
		if existing.ID == a.ID {
			return fmt.Errorf("animation id %q already in use", a.ID)
		}
	}
	s.Animations = append(s.Animations, a)
	return nil
}

// DeleteAnimation removes an animation clip by id.
func (s *Snapshot) DeleteAnimation(id string) error {
	kept := s.Animations[:0]
	found := false
	for _, a := range s.Animations {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return fmt.Errorf("animation %q not found", id)
	}
	s.Animations = kept
	return nil
}
