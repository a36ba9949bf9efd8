package project

import (
	"fmt"
	"strconv"
	"strings"
)

// faceOrder fixes the canonical key order for per-cube face maps.
var faceOrder = []string{"north", "south", "east", "west", "up", "down"}

// sentinel is the stable placeholder for a missing optional field.
const sentinel = ""

// Canonical returns the deterministic structural JSON string used by the revision hash
// (spec §4.1): object keys in fixed order, arrays in input order, missing optional
// fields serialized as sentinel, floats in their shortest round-trip form.
func (s *Snapshot) Canonical() string {
	var b strings.Builder
	b.WriteString("{")
	writeKV(&b, "id", quote(s.ID), true)
	writeKV(&b, "name", quote(s.Name), false)
	writeKV(&b, "format", quote(s.Format), false)
	writeKV(&b, "formatId", quote(s.FormatID), false)
	b.WriteString(",\"bones\":[")
	for i, bone := range s.Bones {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(canonicalBone(bone))
	}
	b.WriteString("],\"cubes\":[")
	for i, cube := range s.Cubes {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(canonicalCube(cube))
	}
	b.WriteString("],\"textures\":[")
	for i, tex := range s.Textures {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(canonicalTexture(tex))
	}
	b.WriteString("],\"animations\":[")
	for i, anim := range s.Animations {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(canonicalAnimation(anim))
	}
	b.WriteString("]}")
	return b.String()
}

func canonicalBone(b Bone) string {
	parent := sentinel
	if b.Parent != nil {
		parent = *b.Parent
	}
	var sb strings.Builder
	sb.WriteString("{")
	writeKV(&sb, "id", quote(b.ID), true)
	writeKV(&sb, "name", quote(b.Name), false)
	writeKV(&sb, "parent", quote(parent), false)
	writeKV(&sb, "pivot", vec3(b.Pivot), false)
	if b.Rotation != nil {
		writeKV(&sb, "rotation", vec3(*b.Rotation), false)
	} else {
		writeKV(&sb, "rotation", quote(sentinel), false)
	}
	if b.Scale != nil {
		writeKV(&sb, "scale", vec3(*b.Scale), false)
	} else {
		writeKV(&sb, "scale", quote(sentinel), false)
	}
	writeKV(&sb, "visibility", boolStr(b.Visibility), false)
	sb.WriteString("}")
	return sb.String()
}

func canonicalCube(c Cube) string {
	var sb strings.Builder
	sb.WriteString("{")
	writeKV(&sb, "id", quote(c.ID), true)
	writeKV(&sb, "name", quote(c.Name), false)
	writeKV(&sb, "bone", quote(c.Bone), false)
	writeKV(&sb, "from", vec3(c.From), false)
	writeKV(&sb, "to", vec3(c.To), false)
	writeKV(&sb, "origin", vec3(c.Origin), false)
	writeKV(&sb, "rotation", vec3(c.Rotation), false)
	writeKV(&sb, "uvOffset", vec2(c.UVOffset), false)
	writeKV(&sb, "boxUv", boolStr(c.BoxUV), false)
	writeKV(&sb, "inflate", num(c.Inflate), false)
	writeKV(&sb, "mirror", boolStr(c.Mirror), false)
	sb.WriteString(",\"faces\":{")
	first := true
	for _, face := range faceOrder {
		uv, ok := c.Faces[face]
		if !ok {
			continue
		}
		if !first {
			sb.WriteString(",")
		}
		first = false
		sb.WriteString(quote(face))
		sb.WriteString(":[")
		sb.WriteString(num(uv[0]))
		sb.WriteString(",")
		sb.WriteString(num(uv[1]))
		sb.WriteString(",")
		sb.WriteString(num(uv[2]))
		sb.WriteString(",")
		sb.WriteString(num(uv[3]))
		sb.WriteString("]")
	}
	sb.WriteString("}}")
	return sb.String()
}

func canonicalTexture(t Texture) string {
	path, hash, data := sentinel, sentinel, sentinel
	if t.Path != nil {
		path = *t.Path
	}
	if t.ContentHash != nil {
		hash = *t.ContentHash
	}
	if t.DataURI != nil {
		data = *t.DataURI
	}
	var sb strings.Builder
	sb.WriteString("{")
	writeKV(&sb, "id", quote(t.ID), true)
	writeKV(&sb, "name", quote(t.Name), false)
	writeKV(&sb, "width", strconv.Itoa(t.Width), false)
	writeKV(&sb, "height", strconv.Itoa(t.Height), false)
	writeKV(&sb, "path", quote(path), false)
	writeKV(&sb, "contentHash", quote(hash), false)
	writeKV(&sb, "dataUri", quote(data), false)
	sb.WriteString("}")
	return sb.String()
}

func canonicalAnimation(a Animation) string {
	var sb strings.Builder
	sb.WriteString("{")
	writeKV(&sb, "id", quote(a.ID), true)
	writeKV(&sb, "name", quote(a.Name), false)
	writeKV(&sb, "length", num(a.Length), false)
	writeKV(&sb, "loop", boolStr(a.Loop), false)
	writeKV(&sb, "fps", num(a.FPS), false)
	sb.WriteString(",\"channels\":[")
	for i, ch := range a.Channels {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(canonicalChannel(ch))
	}
	sb.WriteString("],\"triggers\":[")
	for i, tr := range a.Triggers {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(canonicalTrigger(tr))
	}
	sb.WriteString("]}")
	return sb.String()
}

func canonicalChannel(c Channel) string {
	var sb strings.Builder
	sb.WriteString("{")
	writeKV(&sb, "bone", quote(c.Bone), true)
	sb.WriteString(",\"rotation\":")
	sb.WriteString(canonicalKeyframes(c.Rotation))
	sb.WriteString(",\"position\":")
	sb.WriteString(canonicalKeyframes(c.Position))
	sb.WriteString(",\"scale\":")
	sb.WriteString(canonicalKeyframes(c.Scale))
	sb.WriteString("}")
	return sb.String()
}

func canonicalKeyframes(ks []Keyframe) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, k := range ks {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf("{\"time\":%s,\"value\":%s,\"interp\":%s}", num(k.Time), vec3(k.Value), quote(k.Interp)))
	}
	sb.WriteString("]")
	return sb.String()
}

func canonicalTrigger(t Trigger) string {
	var sb strings.Builder
	sb.WriteString("{\"channel\":")
	sb.WriteString(quote(t.Channel))
	sb.WriteString(",\"times\":[")
	for i, v := range t.Times {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(num(v))
	}
	sb.WriteString("]}")
	return sb.String()
}

func writeKV(b *strings.Builder, key, value string, first bool) {
	if !first {
		b.WriteString(",")
	}
	b.WriteString(quote(key))
	b.WriteString(":")
	b.WriteString(value)
}

// quote produces a JSON string literal. strconv.Quote's escaping is a superset of
// JSON's for our canonical alphabet (ids, names, paths), so no encoding/json round-trip
// is needed just to escape a string for the hash input.
func quote(s string) string {
	return strconv.Quote(s)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func boolStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func vec3(v [3]float64) string {
	return "[" + num(v[0]) + "," + num(v[1]) + "," + num(v[2]) + "]"
}

func vec2(v [2]float64) string {
	return "[" + num(v[0]) + "," + num(v[1]) + "]"
}
