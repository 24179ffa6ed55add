package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zap.NewNop().Sugar())
	go h.Run()
	return h
}

func registerConn(t *testing.T, h *Hub) *Connection {
	t.Helper()
	conn := h.NewConnection(nil)
	h.Register(conn)
	require.Eventually(t, func() bool {
		_, ok := h.Get(conn.ID)
		return ok
	}, time.Second, 5*time.Millisecond)
	return conn
}

func TestHubIssuesUniqueParticipantIDs(t *testing.T) {
	h := newTestHub(t)
	a := h.NewConnection(nil)
	b := h.NewConnection(nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Contains(t, a.ID, "sess_")
}

func TestHubSendToRegisteredConnection(t *testing.T) {
	h := newTestHub(t)
	conn := registerConn(t, h)

	require.NoError(t, h.SendJSONTo(conn.ID, map[string]string{"type": "ping"}))

	select {
	case data := <-conn.Send:
		var msg map[string]string
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "ping", msg["type"])
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestHubSendToAbsentParticipantIsNoOp(t *testing.T) {
	h := newTestHub(t)
	// Must not panic or error; the participant may have disconnected.
	h.SendTo("sess_gone", []byte("{}"))
	require.NoError(t, h.SendJSONTo("sess_gone", map[string]string{"type": "x"}))
}

func TestHubBroadcastSkipsMissing(t *testing.T) {
	h := newTestHub(t)
	a := registerConn(t, h)
	b := registerConn(t, h)

	require.NoError(t, h.BroadcastTo([]string{a.ID, "sess_gone", b.ID}, map[string]string{"type": "update"}))

	for _, conn := range []*Connection{a, b} {
		select {
		case <-conn.Send:
		case <-time.After(time.Second):
			t.Fatal("broadcast never delivered")
		}
	}
}

func TestHubSendToRacingDisconnectDoesNotPanic(t *testing.T) {
	h := newTestHub(t)

	// Broadcasts run in handler goroutines while disconnects are serviced by
	// Run. A send must never land on a Send channel that the unregister path
	// has already closed.
	for i := 0; i < 500; i++ {
		conn := registerConn(t, h)

		done := make(chan struct{})
		go func() {
			h.Unregister(conn)
			close(done)
		}()
		for j := 0; j < 10; j++ {
			h.SendTo(conn.ID, []byte(`{"type":"search-updated"}`))
		}
		<-done

		require.Eventually(t, func() bool {
			_, ok := h.Get(conn.ID)
			return !ok
		}, time.Second, time.Millisecond)
		// Sends after the disconnect are a silent no-op.
		h.SendTo(conn.ID, []byte(`{"type":"search-updated"}`))
	}
}

func TestHubUpdateDataMerges(t *testing.T) {
	h := newTestHub(t)
	conn := registerConn(t, h)

	h.UpdateData(conn.ID, map[string]interface{}{"type": "create-search", "query": "pizza"})
	h.UpdateData(conn.ID, map[string]interface{}{"type": "adjust-search"})

	got, ok := h.Get(conn.ID)
	require.True(t, ok)
	assert.Equal(t, "adjust-search", got.Data["type"])
	assert.Equal(t, "pizza", got.Data["query"])

	// Unknown participants are ignored.
	h.UpdateData("sess_gone", map[string]interface{}{"x": 1})
}

func TestHubUnregisterRemovesConnection(t *testing.T) {
	h := newTestHub(t)
	conn := registerConn(t, h)
	require.Equal(t, 1, h.ConnectionCount())

	h.Unregister(conn)
	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-conn.Send
	assert.False(t, open, "send channel should be closed")
}

func TestHubParticipantIDs(t *testing.T) {
	h := newTestHub(t)
	a := registerConn(t, h)
	b := registerConn(t, h)

	ids := h.ParticipantIDs()
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
