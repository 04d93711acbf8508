// Package live subscribes to a running server's websocket camera feed.
package live

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rymis/httpcam/internal/log"
)

const (
	handshakeTimeout = 10 * time.Second

	// readWait must outlast the server ping period.
	readWait = 90 * time.Second

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Client keeps a websocket subscription to the camera feed alive and
// holds the most recent frame.
type Client struct {
	url string

	// OnFrame, when set before Run, is called for every received frame.
	OnFrame func(data []byte, seq uint64)

	mu        sync.RWMutex
	latest    []byte
	seq       uint64
	connected bool

	frameReady chan struct{}

	backoff    time.Duration
	maxBackoff time.Duration
}

// NewClient prepares a subscription to the given server. Accepts plain
// host:port, http(s) or ws(s) URLs; the path defaults to /ws/camera.
func NewClient(server string) (*Client, error) {
	u, err := wsURL(server)
	if err != nil {
		return nil, err
	}
	return &Client{
		url:        u,
		frameReady: make(chan struct{}, 1),
		backoff:    initialBackoff,
		maxBackoff: maxBackoff,
	}, nil
}

func wsURL(server string) (string, error) {
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("live: parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("live: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws/camera"
	}
	return u.String(), nil
}

// Run maintains the subscription until ctx is cancelled, reconnecting
// with capped exponential backoff. It blocks.
func (c *Client) Run(ctx context.Context) error {
	wait := c.backoff
	for {
		frames, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if frames > 0 {
			wait = c.backoff
		}
		log.Warn("stream disconnected", "error", err, "retry_in", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		if wait *= 2; wait > c.maxBackoff {
			wait = c.maxBackoff
		}
	}
}

// session runs one websocket connection until it drops.
func (c *Client) session(ctx context.Context) (int, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("connect %s: %w", c.url, err)
	}
	defer ws.Close()

	// Unblock ReadMessage when the context goes away.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-done:
		}
	}()

	c.setConnected(true)
	defer c.setConnected(false)
	log.Info("stream connected", "url", c.url)

	frames := 0
	for {
		ws.SetReadDeadline(time.Now().Add(readWait))
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			return frames, err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		frames++
		c.store(data)
	}
}

func (c *Client) store(data []byte) {
	c.mu.Lock()
	c.latest = data
	c.seq++
	seq := c.seq
	cb := c.OnFrame
	c.mu.Unlock()

	select {
	case c.frameReady <- struct{}{}:
	default:
	}
	if cb != nil {
		cb(data, seq)
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Connected reports whether a session is currently up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Frame returns a copy of the latest received frame.
func (c *Client) Frame() ([]byte, uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.latest == nil {
		return nil, 0, fmt.Errorf("live: no frame received yet")
	}
	frame := make([]byte, len(c.latest))
	copy(frame, c.latest)
	return frame, c.seq, nil
}

// WaitForFrame blocks until a frame has arrived or the timeout expires.
func (c *Client) WaitForFrame(timeout time.Duration) ([]byte, error) {
	if frame, _, err := c.Frame(); err == nil {
		return frame, nil
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case <-c.frameReady:
			if frame, _, err := c.Frame(); err == nil {
				return frame, nil
			}
		case <-t.C:
			return nil, fmt.Errorf("live: timeout waiting for frame")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
