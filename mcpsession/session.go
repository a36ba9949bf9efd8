// Package mcpsession implements the Session Store (C6): process-wide MCP session
// lifecycle plus the bounded set of SSE connections attached to each session.
package mcpsession

import (
	"sync"
	"time"
)

// Session is one negotiated MCP client connection: a protocol version, an
// initialization flag, and the SSE connections currently attached to it.
type Session struct {
	ID              string
	Protocol        string
	Initialized     bool
	CreatedAt       time.Time
	lastActivity    time.Time
	SubscribedProjects map[string]bool

	mu    sync.Mutex
	conns map[string]*Connection
}

// Touch records activity on the session, resetting its idle-eviction clock.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SubscribeProject marks the session as interested in project-scoped events (spec
// §4.6's SSE fan-out, scenario 5: "sessions subscribed to P").
func (s *Session) SubscribeProject(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubscribedProjects == nil {
		s.SubscribedProjects = map[string]bool{}
	}
	s.SubscribedProjects[projectID] = true
}

// IsSubscribed reports whether the session is subscribed to a project's events.
func (s *Session) IsSubscribed(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SubscribedProjects[projectID]
}
