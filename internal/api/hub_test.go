package api

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHub_ClientCountStartsAtZero(t *testing.T) {
	hub := NewHub(zap.NewNop())
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHub_RegisterAndUnregisterTracksClientCount(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	client := &Client{id: "test-client", hub: hub, send: make(chan []byte, 1)}
	hub.register <- client
	waitUntil(t, func() bool { return hub.ClientCount() == 1 })

	hub.unregister <- client
	waitUntil(t, func() bool { return hub.ClientCount() == 0 })
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
