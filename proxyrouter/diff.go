package proxyrouter

import "github.com/ashfox/gateway/project"

// diffSince reports a coarse set of changes between a past snapshot and the current one:
// which bones/cubes/textures/animations were added or removed by name/id. It does not
// attempt field-level diffs (out of scope for the compound-tool response per spec §4.4b,
// which only asks for "a diff since revision", not a patch format).
func diffSince(before, after *project.Snapshot) []string {
	if before == nil || after == nil {
		return nil
	}
	var out []string
	out = append(out, diffNames("bone", namesOfBones(before.Bones), namesOfBones(after.Bones))...)
	out = append(out, diffNames("cube", namesOfCubes(before.Cubes), namesOfCubes(after.Cubes))...)
	out = append(out, diffNames("texture", idsOfTextures(before.Textures), idsOfTextures(after.Textures))...)
	out = append(out, diffNames("animation", idsOfAnimations(before.Animations), idsOfAnimations(after.Animations))...)
	return out
}

func diffNames(kind string, before, after []string) []string {
	beforeSet := toSet(before)
	afterSet := toSet(after)
	var out []string
	for _, name := range after {
		if !beforeSet[name] {
			out = append(out, kind+"_added:"+name)
		}
	}
	for _, name := range before {
		if !afterSet[name] {
			out = append(out, kind+"_removed:"+name)
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

func namesOfBones(bones []project.Bone) []string {
	out := make([]string, len(bones))
	for i, b := range bones {
		out[i] = b.Name
	}
	return out
}

func namesOfCubes(cubes []project.Cube) []string {
	out := make([]string, len(cubes))
	for i, c := range cubes {
		out[i] = c.Name
	}
	return out
}

func idsOfTextures(textures []project.Texture) []string {
	out := make([]string, len(textures))
	for i, t := range textures {
		out[i] = t.ID
	}
	return out
}

func idsOfAnimations(animations []project.Animation) []string {
	out := make([]string, len(animations))
	for i, a := range animations {
		out[i] = a.ID
	}
	return out
}
