package mcpsession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	st := New(time.Minute, nil)
	defer st.Close()

	s := st.Create("2025-06-18")
	got := st.Get(s.ID)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)
	assert.False(t, got.Initialized)
}

func TestAttachSSERejectsFourthConnection(t *testing.T) {
	st := New(time.Minute, nil)
	defer st.Close()

	s := st.Create("2025-06-18")
	for i := 0; i < MaxConnectionsPerSession; i++ {
		_, err := st.AttachSSE(s)
		require.NoError(t, err)
	}

	_, err := st.AttachSSE(s)
	assert.ErrorIs(t, err, ErrTooManyConnections)
}

func TestDetachSSEIsIdempotent(t *testing.T) {
	st := New(time.Minute, nil)
	defer st.Close()

	s := st.Create("2025-06-18")
	conn, err := st.AttachSSE(s)
	require.NoError(t, err)

	st.DetachSSE(s, conn)
	st.DetachSSE(s, conn) // must not panic or double-close

	_, err = st.AttachSSE(s)
	assert.NoError(t, err)
}

func TestCloseSessionClosesAllConnections(t *testing.T) {
	st := New(time.Minute, nil)
	defer st.Close()

	s := st.Create("2025-06-18")
	conn, err := st.AttachSSE(s)
	require.NoError(t, err)

	st.CloseSession(s.ID)

	select {
	case <-conn.Closed:
	default:
		t.Fatal("expected connection to be closed")
	}
	assert.Nil(t, st.Get(s.ID))
}

func TestPublishToProjectOnlyReachesSubscribedSessions(t *testing.T) {
	st := New(time.Minute, nil)
	defer st.Close()

	subscribed := st.Create("2025-06-18")
	subscribed.SubscribeProject("p1")
	conn, err := st.AttachSSE(subscribed)
	require.NoError(t, err)

	unsubscribed := st.Create("2025-06-18")
	otherConn, err := st.AttachSSE(unsubscribed)
	require.NoError(t, err)

	st.PublishToProject(context.Background(), "p1", Event{ID: 1, Name: "project.snapshot", Data: `{"seq":1}`})

	select {
	case ev := <-conn.Events:
		assert.Equal(t, uint64(1), ev.ID)
	default:
		t.Fatal("expected subscribed session to receive the event")
	}

	select {
	case <-otherConn.Events:
		t.Fatal("unsubscribed session should not receive the event")
	default:
	}
}

func TestEventEncodeFraming(t *testing.T) {
	ev := Event{ID: 7, Name: "project.snapshot", Data: "line one\nline two"}
	encoded := ev.Encode()
	assert.Equal(t, "id: 7\nevent: project.snapshot\ndata: line one\ndata: line two\n\n", encoded)
}
