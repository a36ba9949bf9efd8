// Package editoradapter declares the narrow seams onto collaborators spec.md §1 places
// out of scope: the 3D editor host binding (Blockbench-style globals) that executes
// mutations and the format-specific exporter back-ends (glTF and friends). Read access
// to the live editor is toolservice.LiveAdapter; this package covers the write and
// export sides. Neither interface is implemented in this module.
package editoradapter

import "context"

// Mutator executes a named operation with arguments against the attached editor host
// and reports the operation's raw result, or an error if the editor rejects it or is
// not attached. The Tool Service (toolservice.Service) calls through this seam for the
// "Execute against the editor adapter" step of its usecase pipeline (spec.md §4.2).
type Mutator interface {
	Execute(ctx context.Context, op string, args map[string]interface{}) (result interface{}, err error)
}

// Exporter resolves a format kind to a concrete exporter back-end and invokes it. A
// nil, ok=false result signals no native exporter is registered for formatID, in which
// case the caller falls back to an internal serializer (spec.md §4.2's export step).
type Exporter interface {
	Export(ctx context.Context, formatID string, snapshot interface{}) (data []byte, ok bool, err error)
}
