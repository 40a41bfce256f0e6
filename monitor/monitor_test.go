package monitor

import (
	"context"
	"encoding/json"
	"evroaming/internal/logtest"
	"evroaming/oicp"
	"evroaming/telemetry"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, m *Monitor) *websocket.Conn {
	t.Helper()
	router := httprouter.New()
	m.Register(router)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + wsEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestObserveBroadcastsToClients(t *testing.T) {
	m := New(&logtest.Recorder{})
	conn := dial(t, m)
	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	event := &telemetry.Event{
		Kind:       telemetry.KindResponse,
		Operation:  oicp.AuthorizeStartOperation,
		ProcessID:  oicp.NewProcessID(),
		Partner:    "DE-GDF",
		Successful: true,
		Runtime:    15 * time.Millisecond,
	}
	require.NoError(t, m.Observe(context.Background(), event))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got telemetry.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, event.Operation, got.Operation)
	assert.Equal(t, event.ProcessID, got.ProcessID)
	assert.Equal(t, event.Runtime, got.Runtime)
	assert.True(t, got.Successful)
}

func TestClientLeaving(t *testing.T) {
	m := New(nil)
	conn := dial(t, m)
	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, m.Observe(context.Background(), &telemetry.Event{Kind: telemetry.KindRequest}))
}

func TestSlowClientIsDropped(t *testing.T) {
	m := New(&logtest.Recorder{})
	fast := &subscriber{remote: "fast", send: make(chan []byte, 2)}
	slow := &subscriber{remote: "slow", send: make(chan []byte)}
	m.clients[fast] = struct{}{}
	m.clients[slow] = struct{}{}

	// nobody drains slow, so the first event already overflows it
	require.NoError(t, m.Observe(context.Background(), &telemetry.Event{Kind: telemetry.KindRequest}))
	assert.Equal(t, 1, m.Count())
	_, open := <-slow.send
	assert.False(t, open)
	assert.Len(t, fast.send, 1)

	m.Close()
	assert.Equal(t, 0, m.Count())
}
