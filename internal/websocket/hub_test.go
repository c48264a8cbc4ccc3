package websocket

import (
	"testing"
	"time"

	"ai-salesops-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func attach(hub *Hub, sessionID string) *Client {
	c := &Client{Hub: hub, SessionID: sessionID, Send: make(chan []byte, 4)}
	hub.register <- c
	return c
}

func TestHubSendTargetsSession(t *testing.T) {
	hub := startHub(t)
	a1 := attach(hub, "a")
	a2 := attach(hub, "a")
	b := attach(hub, "b")
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	hub.Send("a", []byte(`{"type":"reply"}`))

	assert.Equal(t, `{"type":"reply"}`, string(<-a1.Send))
	assert.Equal(t, `{"type":"reply"}`, string(<-a2.Send))
	assert.Empty(t, b.Send)
}

func TestHubBroadcastReachesEveryone(t *testing.T) {
	hub := startHub(t)
	a := attach(hub, "a")
	b := attach(hub, "b")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast([]byte("ping"))

	assert.Equal(t, "ping", string(<-a.Send))
	assert.Equal(t, "ping", string(<-b.Send))
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	a := attach(hub, "a")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.unregister <- a
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-a.Send
	assert.False(t, open)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := startHub(t)
	a := attach(hub, "a")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < cap(a.Send)+3; i++ {
		hub.Send("a", []byte("x"))
	}
	assert.Len(t, a.Send, cap(a.Send))
}
