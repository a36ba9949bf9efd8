package toolservice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashfox/gateway/project"
	"github.com/ashfox/gateway/revision"
)

// preflightResult is the cached outcome of the last preflight_texture call (spec §4.3's
// "preflight_texture is idempotent" testable property): two calls with no intervening
// mutation return the same uvUsageId.
type preflightResult struct {
	uvUsageID string
	usage     []FaceUsage
}

// FaceUsage describes one cube face's UV assignment, as returned by preflight_texture
// when includeUsage is requested.
type FaceUsage struct {
	Cube string  `json:"cube"`
	Face string  `json:"face"`
	UV   [4]float64 `json:"uv"`
}

// PreflightTextureResult is the data payload of a successful preflight_texture call.
type PreflightTextureResult struct {
	UVUsageID string      `json:"uvUsageId"`
	Usage     []FaceUsage `json:"usage,omitempty"`
	Overlaps  []string    `json:"overlaps,omitempty"`
	Tiny      []string    `json:"tiny,omitempty"`
	Skewed    []string    `json:"skewed,omitempty"`
}

// PreflightTexture resolves per-face UV usage across all cubes and computes a stable
// uvUsageId, detecting overlapping/tiny/skewed rects along the way (spec §4.3).
func (s *Service) PreflightTexture(includeUsage bool) UsecaseResult[PreflightTextureResult] {
	return read(s, func(active *project.Snapshot) (PreflightTextureResult, error) {
		usage := collectFaceUsage(active)
		id := uvUsageID(active, usage)

		s.preflightCache = &preflightResult{uvUsageID: id, usage: usage}

		result := PreflightTextureResult{UVUsageID: id}
		if includeUsage {
			result.Usage = usage
		}
		result.Overlaps = detectOverlaps(usage)
		result.Tiny = detectTiny(usage)
		result.Skewed = detectSkewed(usage)
		return result, nil
	})
}

// CheckUVUsage compares a caller-supplied uvUsageId against the current one, returning
// an invalid_state/uv_usage_changed error on mismatch (spec §4.3's paint-tool guard).
func (s *Service) CheckUVUsage(claimedUsageID string) *ToolError {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := collectFaceUsage(s.active)
	current := uvUsageID(s.active, usage)
	if claimedUsageID != current {
		return invalidState("uv_usage_changed", "uv usage has changed since the supplied uvUsageId was computed", map[string]interface{}{
			"expected": claimedUsageID,
			"actual":   current,
		})
	}
	return nil
}

func collectFaceUsage(active *project.Snapshot) []FaceUsage {
	if active == nil {
		return nil
	}
	usage := make([]FaceUsage, 0)
	for _, c := range active.Cubes {
		faces := make([]string, 0, len(c.Faces))
		for face := range c.Faces {
			faces = append(faces, face)
		}
		sort.Strings(faces)
		for _, face := range faces {
			usage = append(usage, FaceUsage{Cube: c.Name, Face: face, UV: c.Faces[face]})
		}
	}
	return usage
}

// uvUsageID hashes textures × cubes × faces × uv into a stable token (spec §4.3), reusing
// the revision DJB2 hash over a deterministic string so the same purity guarantees apply.
func uvUsageID(active *project.Snapshot, usage []FaceUsage) string {
	if active == nil {
		return revision.DJB2Hex("")
	}
	var b strings.Builder
	for _, t := range active.Textures {
		fmt.Fprintf(&b, "tex:%s:%dx%d;", t.ID, t.Width, t.Height)
	}
	for _, u := range usage {
		fmt.Fprintf(&b, "face:%s:%s:%g,%g,%g,%g;", u.Cube, u.Face, u.UV[0], u.UV[1], u.UV[2], u.UV[3])
	}
	return revision.DJB2Hex(b.String())
}

// detectOverlaps flags pairs of faces whose UV rects intersect.
func detectOverlaps(usage []FaceUsage) []string {
	var out []string
	for i := 0; i < len(usage); i++ {
		for j := i + 1; j < len(usage); j++ {
			if rectsOverlap(usage[i].UV, usage[j].UV) {
				out = append(out, fmt.Sprintf("%s.%s~%s.%s", usage[i].Cube, usage[i].Face, usage[j].Cube, usage[j].Face))
			}
		}
	}
	return out
}

func rectsOverlap(a, b [4]float64) bool {
	return a[0] < b[2] && b[0] < a[2] && a[1] < b[3] && b[1] < a[3]
}

// detectTiny flags faces whose UV rect area is vanishingly small.
func detectTiny(usage []FaceUsage) []string {
	var out []string
	for _, u := range usage {
		w := u.UV[2] - u.UV[0]
		h := u.UV[3] - u.UV[1]
		if w*h < 1 {
			out = append(out, u.Cube+"."+u.Face)
		}
	}
	return out
}

// detectSkewed flags faces whose UV rect aspect ratio is far from square (heuristic).
func detectSkewed(usage []FaceUsage) []string {
	var out []string
	for _, u := range usage {
		w := u.UV[2] - u.UV[0]
		h := u.UV[3] - u.UV[1]
		if w <= 0 || h <= 0 {
			continue
		}
		ratio := w / h
		if ratio > 8 || ratio < 0.125 {
			out = append(out, u.Cube+"."+u.Face)
		}
	}
	return out
}
