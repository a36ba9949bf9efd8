package mcpsession

import "fmt"

// MaxConnectionsPerSession bounds concurrent SSE connections per session (spec §4.6/§5).
const MaxConnectionsPerSession = 3

// Connection is one open SSE stream attached to a session. Events is the channel the
// HTTP adapter drains to write `data:`/`event:`/`id:` frames; Close signals the adapter
// to end the stream (used for idempotent detach, spec §4.6).
type Connection struct {
	ID     string
	Events chan Event
	Closed chan struct{}
}

// Event is one server-pushed SSE event, framed per spec §4.6: `id: <n>`, optional
// `event: <name>`, one or more `data: <line>` per original line, terminated by a blank
// line.
type Event struct {
	ID    uint64
	Name  string
	Data  string
}

// Encode renders the event in SSE wire format.
func (e Event) Encode() string {
	out := fmt.Sprintf("id: %d\n", e.ID)
	if e.Name != "" {
		out += fmt.Sprintf("event: %s\n", e.Name)
	}
	for _, line := range splitLines(e.Data) {
		out += "data: " + line + "\n"
	}
	out += "\n"
	return out
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
