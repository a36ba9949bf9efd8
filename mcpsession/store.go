package mcpsession

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTooManyConnections is returned by AttachSSE when a session is already at
// MaxConnectionsPerSession (spec §4.6/§5: 4th connection → 429 too_many_requests).
var ErrTooManyConnections = errors.New("too_many_requests")

// Publisher is the optional cross-process fan-out seam (spec §4.6's SSE fan-out,
// scenario 5): when configured with a Redis URL, events pushed on one gateway process
// reach SSE connections held by another. Satisfied by *redislock.Client (pipeline
// backend) in production; a nil Publisher keeps fan-out in-process only.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan interface{}, error)
}

// projectEvent is the cross-process wire shape published for a project snapshot event.
type projectEvent struct {
	ProjectID string `json:"projectId"`
	Seq       uint64 `json:"seq"`
	Event     Event  `json:"event"`
}

// Store is the process-wide MCP Session Store: session lifecycle plus idle eviction.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	idleTTL   time.Duration
	publisher Publisher

	stop chan struct{}
}

// New builds a Store with the given idle-eviction TTL (spec.md §9 Open Question 2:
// default 30 minutes, see SPEC_FULL.md §C) and an optional cross-process Publisher.
func New(idleTTL time.Duration, publisher Publisher) *Store {
	st := &Store{
		sessions:  map[string]*Session{},
		idleTTL:   idleTTL,
		publisher: publisher,
		stop:      make(chan struct{}),
	}
	go st.evictLoop()
	if publisher != nil {
		go st.fanOutLoop()
	}
	return st
}

// Close stops the background eviction loop.
func (st *Store) Close() {
	close(st.stop)
}

// Create allocates a fresh, uninitialized session (spec §4.5's `initialize`).
func (st *Store) Create(protocol string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := &Session{
		ID:           uuid.NewString(),
		Protocol:     protocol,
		CreatedAt:    time.Now(),
		lastActivity: time.Now(),
		conns:        map[string]*Connection{},
	}
	st.sessions[s.ID] = s
	return s
}

// Get returns the session by id, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

// CloseSession removes a session, closing every attached SSE connection.
func (st *Store) CloseSession(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	st.mu.Unlock()

	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		closeConnLocked(c)
	}
	s.conns = map[string]*Connection{}
}

// AttachSSE registers a new SSE connection on the session, enforcing
// MaxConnectionsPerSession.
func (st *Store) AttachSSE(s *Session) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.conns) >= MaxConnectionsPerSession {
		return nil, ErrTooManyConnections
	}

	conn := &Connection{
		ID:     uuid.NewString(),
		Events: make(chan Event, 16),
		Closed: make(chan struct{}),
	}
	s.conns[conn.ID] = conn
	return conn, nil
}

// DetachSSE removes a connection from the session. Idempotent: detaching an
// already-removed connection is a no-op (spec §4.6's close-hook requirement).
func (st *Store) DetachSSE(s *Session, conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.conns[conn.ID]
	if !ok {
		return
	}
	closeConnLocked(existing)
	delete(s.conns, conn.ID)
}

func closeConnLocked(c *Connection) {
	select {
	case <-c.Closed:
		// already closed
	default:
		close(c.Closed)
	}
}

// sharedChannel is the single Redis Pub/Sub channel used for cross-process project-event
// fan-out; project scoping happens in the message payload, not the channel name, since
// plain SUBSCRIBE (unlike PSUBSCRIBE) doesn't support wildcard channels.
const sharedChannel = "ashfox:mcpsession:project-events"

// PublishToProject pushes ev to every SSE connection on every session subscribed to
// projectID, both locally and (if configured) via the cross-process Publisher.
func (st *Store) PublishToProject(ctx context.Context, projectID string, ev Event) {
	st.publishLocal(projectID, ev)
	if st.publisher != nil {
		_ = st.publisher.Publish(ctx, sharedChannel, projectEvent{ProjectID: projectID, Seq: ev.ID, Event: ev})
	}
}

func (st *Store) publishLocal(projectID string, ev Event) {
	st.mu.Lock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.Unlock()

	for _, s := range sessions {
		if !s.IsSubscribed(projectID) {
			continue
		}
		s.mu.Lock()
		for _, c := range s.conns {
			select {
			case c.Events <- ev:
			default:
				// slow consumer: drop rather than block the publisher (spec §4.6
				// keep-alive/backpressure is the adapter's job, not the store's).
			}
		}
		s.mu.Unlock()
	}
}

func (st *Store) fanOutLoop() {
	ch, err := st.publisher.Subscribe(context.Background(), sharedChannel)
	if err != nil {
		return
	}
	for msg := range ch {
		data, ok := msg.(map[string]interface{})
		if !ok {
			continue
		}
		raw, _ := json.Marshal(data)
		var pe projectEvent
		if err := json.Unmarshal(raw, &pe); err != nil {
			continue
		}
		st.publishLocal(pe.ProjectID, pe.Event)
	}
}

func (st *Store) evictLoop() {
	ticker := time.NewTicker(st.idleTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			st.evictIdle()
		}
	}
}

func (st *Store) evictIdle() {
	cutoff := time.Now().Add(-st.idleTTL)

	st.mu.Lock()
	var toClose []string
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			toClose = append(toClose, id)
		}
	}
	st.mu.Unlock()

	for _, id := range toClose {
		st.CloseSession(id)
	}
}
