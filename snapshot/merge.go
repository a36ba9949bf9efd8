// Package snapshot implements the Snapshot Merger (C2): fusing a session-authoritative
// project snapshot with an optional live-editor snapshot under a configurable policy,
// and normalizing the resulting format identification.
package snapshot

import (
	"strings"

	"github.com/ashfox/gateway/project"
)

// Policy selects how session and live snapshots are fused (spec §4.2).
type Policy string

const (
	PolicySession Policy = "session"
	PolicyLive    Policy = "live"
	PolicyHybrid  Policy = "hybrid" // default
)

// knownFormats is the substring-matched format kind table used when formatId is
// present but format is not, and no override table entry applies.
var knownFormats = []string{"animated_java", "geckolib", "vanilla"}

// Merge fuses session (authoritative, never nil) and an optional live snapshot under
// policy, returning a normalized snapshot. overrideTable maps a formatId substring to
// an explicit format kind, checked before the knownFormats substring match.
func Merge(session *project.Snapshot, live *project.Snapshot, policy Policy, overrideTable map[string]string) *project.Snapshot {
	var merged *project.Snapshot

	switch policy {
	case PolicyLive:
		merged = mergeLive(session, live)
	case PolicySession:
		merged = session.Clone()
	default:
		merged = mergeHybrid(session, live)
	}

	normalizeFormat(merged, overrideTable)
	return merged
}

// mergeLive uses live wholesale but falls back to session for format/formatId/name
// when live is absent or omits them.
func mergeLive(session, live *project.Snapshot) *project.Snapshot {
	if live == nil {
		return session.Clone()
	}
	out := live.Clone()
	if out.Format == "" {
		out.Format = session.Format
	}
	if out.FormatID == "" {
		out.FormatID = session.FormatID
	}
	if out.Name == "" {
		out.Name = session.Name
	}
	return out
}

// animationsUnavailable is the LiveInput.AnimationsStatus value this package treats as
// "live has no usable animation data" per spec §4.2's hybrid policy.
const animationsUnavailable = "unavailable"

// LiveInput carries the live snapshot plus the out-of-band animations status flag
// referenced in spec §4.2 (hybrid policy keeps session animations unless live's
// status differs from "unavailable").
type LiveInput struct {
	Snapshot         *project.Snapshot
	AnimationsStatus string
}

// mergeHybrid implements the default policy: live identifiers/fields/bones/cubes win;
// textures merge by id-or-name (live wins, but live's omitted path/size/contentHash
// fall back to session's); animations come from live only when available.
func mergeHybrid(session, live *project.Snapshot) *project.Snapshot {
	if live == nil {
		return session.Clone()
	}

	out := live.Clone()
	if out.Format == "" {
		out.Format = session.Format
	}
	if out.FormatID == "" {
		out.FormatID = session.FormatID
	}
	if out.Name == "" {
		out.Name = session.Name
	}

	out.Textures = mergeTextures(session.Textures, live.Textures)

	// Hybrid keeps session animations unless the caller signals live animations are
	// available; MergeWithLiveStatus exposes that signal, Merge defaults to "keep
	// session" since plain *project.Snapshot carries no status field.
	out.Animations = append([]project.Animation(nil), session.Animations...)
	fillAnimationGaps(out, session)

	return out
}

// MergeWithLiveStatus is the hybrid-policy entry point that also honors live's
// animations availability status (spec §4.2): live animations are used only when
// animationsStatus != "unavailable".
func MergeWithLiveStatus(session *project.Snapshot, live LiveInput, overrideTable map[string]string) *project.Snapshot {
	merged := mergeHybrid(session, live.Snapshot)
	if live.Snapshot != nil && live.AnimationsStatus != animationsUnavailable && live.AnimationsStatus != "" {
		merged.Animations = append([]project.Animation(nil), live.Snapshot.Animations...)
	}
	normalizeFormat(merged, overrideTable)
	return merged
}

// fillAnimationGaps fills fps/channels/triggers on out's animations from session's
// matching-id animation when out's own fields are zero-valued.
func fillAnimationGaps(out, session *project.Snapshot) {
	byID := make(map[string]project.Animation, len(session.Animations))
	for _, a := range session.Animations {
		byID[a.ID] = a
	}
	for i := range out.Animations {
		sess, ok := byID[out.Animations[i].ID]
		if !ok {
			continue
		}
		if out.Animations[i].FPS == 0 {
			out.Animations[i].FPS = sess.FPS
		}
		if len(out.Animations[i].Channels) == 0 {
			out.Animations[i].Channels = sess.Channels
		}
		if len(out.Animations[i].Triggers) == 0 {
			out.Animations[i].Triggers = sess.Triggers
		}
	}
}

// mergeTextures fuses textures keyed by id-or-name: live wins on conflict, but
// preserves session's path/contentHash when live omits them.
func mergeTextures(session, live []project.Texture) []project.Texture {
	byKey := make(map[string]project.Texture, len(session))
	order := make([]string, 0, len(session))
	key := func(t project.Texture) string {
		if t.ID != "" {
			return "id:" + t.ID
		}
		return "name:" + t.Name
	}

	for _, t := range session {
		k := key(t)
		byKey[k] = t
		order = append(order, k)
	}

	for _, t := range live {
		k := key(t)
		existing, had := byKey[k]
		merged := t
		if merged.Path == nil {
			merged.Path = existing.Path
		}
		if merged.ContentHash == nil {
			merged.ContentHash = existing.ContentHash
		}
		if merged.Width == 0 {
			merged.Width = existing.Width
		}
		if merged.Height == 0 {
			merged.Height = existing.Height
		}
		byKey[k] = merged
		if !had {
			order = append(order, k)
		}
	}

	out := make([]project.Texture, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

// normalizeFormat derives Format from FormatID when Format is empty, first via
// overrideTable, then via substring match against knownFormats.
func normalizeFormat(s *project.Snapshot, overrideTable map[string]string) {
	if s.Format != "" || s.FormatID == "" {
		return
	}
	for substr, kind := range overrideTable {
		if strings.Contains(s.FormatID, substr) {
			s.Format = kind
			return
		}
	}
	for _, kind := range knownFormats {
		if strings.Contains(s.FormatID, kind) {
			s.Format = kind
			return
		}
	}
}
