package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func waitCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), want)
}

func TestHubRegisterUnregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	c := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- c
	waitCount(t, h, 1)

	h.unregister <- c
	waitCount(t, h, 0)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected send channel closed after unregister")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed after unregister")
	}
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	a := &Client{hub: h, send: make(chan Message, 4)}
	b := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- a
	h.register <- b
	waitCount(t, h, 2)

	h.BroadcastBinary([]byte{0xff, 0xd8})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if !msg.Binary {
				t.Error("broadcast frame should be a binary message")
			}
			if len(msg.Data) != 2 {
				t.Errorf("data length = %d, want 2", len(msg.Data))
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubBroadcastJSON(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	c := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- c
	waitCount(t, h, 1)

	if err := h.BroadcastJSON(map[string]int{"seq": 7}); err != nil {
		t.Fatalf("BroadcastJSON() error = %v", err)
	}

	select {
	case msg := <-c.send:
		if msg.Binary {
			t.Error("status broadcast should be a text message")
		}
		var got map[string]int
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if got["seq"] != 7 {
			t.Errorf("seq = %d, want 7", got["seq"])
		}
	case <-time.After(time.Second):
		t.Fatal("client did not receive broadcast")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	slow := &Client{hub: h, send: make(chan Message, 1)}
	h.register <- slow
	waitCount(t, h, 1)

	// First message fills the buffer, second one must evict the client.
	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})
	waitCount(t, h, 0)
}

func TestHubShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("test")
	go h.Run(ctx)

	c := &Client{hub: h, send: make(chan Message, 4)}
	h.register <- c
	waitCount(t, h, 1)

	cancel()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after cancel")
	}

	if h.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
	if _, ok := <-c.send; ok {
		t.Error("client send channel still open after shutdown")
	}

	// Late unregister must not block once the hub is gone.
	done := make(chan struct{})
	go func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("unregister blocked after shutdown")
	}
}
