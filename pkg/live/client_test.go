package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWsURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "localhost:8080", want: "ws://localhost:8080/ws/camera"},
		{in: "http://cam.local:8080", want: "ws://cam.local:8080/ws/camera"},
		{in: "https://cam.local", want: "wss://cam.local/ws/camera"},
		{in: "ws://cam.local/custom", want: "ws://cam.local/custom"},
		{in: "ftp://cam.local", err: true},
	}
	for _, tc := range tests {
		got, err := wsURL(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("wsURL(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("wsURL(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("wsURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// frameServer upgrades /ws/camera and pushes count binary frames per
// connection, then closes it.
func frameServer(t *testing.T, count int, conns *atomic.Int32) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/camera", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		if conns != nil {
			conns.Add(1)
		}
		for i := 0; i < count; i++ {
			if err := ws.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0xd8, byte(i)}); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientReceivesFrames(t *testing.T) {
	srv := frameServer(t, 3, nil)

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	frame, err := c.WaitForFrame(3 * time.Second)
	if err != nil {
		t.Fatalf("WaitForFrame() error = %v", err)
	}
	if len(frame) != 3 || frame[0] != 0xff || frame[1] != 0xd8 {
		t.Errorf("frame = %v, want jpeg-marked test frame", frame)
	}

	if _, seq, err := c.Frame(); err != nil || seq == 0 {
		t.Errorf("Frame() seq = %d, err = %v, want counted frame", seq, err)
	}
}

func TestClientReconnects(t *testing.T) {
	var conns atomic.Int32
	srv := frameServer(t, 1, &conns)

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.backoff = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if conns.Load() >= 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("connections = %d, want at least 2 (no reconnect)", conns.Load())
}

func TestClientOnFrame(t *testing.T) {
	srv := frameServer(t, 3, nil)

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.backoff = 10 * time.Millisecond

	got := make(chan uint64, 8)
	c.OnFrame = func(data []byte, seq uint64) {
		got <- seq
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case seq := <-got:
		if seq != 1 {
			t.Errorf("first callback seq = %d, want 1", seq)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("OnFrame was never called")
	}
}

func TestClientFrameBeforeConnect(t *testing.T) {
	c, err := NewClient("localhost:1")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, _, err := c.Frame(); err == nil {
		t.Error("Frame() before any data expected error")
	}
}
