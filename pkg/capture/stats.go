package capture

import (
	"sync"
	"time"
)

// fpsWindow is how many recent frame timestamps feed the fps estimate.
const fpsWindow = 16

// stats tracks loop counters behind a mutex so Status can read them from
// handler goroutines.
type stats struct {
	mu      sync.Mutex
	started time.Time
	frames  uint64
	width   int
	height  int
	lastErr string
	times   [fpsWindow]time.Time
	n       int
}

func (st *stats) start() {
	st.mu.Lock()
	st.started = time.Now()
	st.mu.Unlock()
}

func (st *stats) frame(w, h int) {
	st.mu.Lock()
	st.frames++
	st.width = w
	st.height = h
	st.times[st.n%fpsWindow] = time.Now()
	st.n++
	st.mu.Unlock()
}

func (st *stats) fail(err error) {
	st.mu.Lock()
	st.lastErr = err.Error()
	st.mu.Unlock()
}

func (st *stats) snapshot() Status {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := Status{
		Frames:  st.frames,
		Width:   st.width,
		Height:  st.height,
		LastErr: st.lastErr,
	}
	if !st.started.IsZero() {
		s.Uptime = time.Since(st.started).Seconds()
	}

	// Estimate fps over the retained window.
	count := min(st.n, fpsWindow)
	if count >= 2 {
		newest := st.times[(st.n-1)%fpsWindow]
		oldest := st.times[(st.n-count)%fpsWindow]
		if span := newest.Sub(oldest).Seconds(); span > 0 {
			s.FPS = float64(count-1) / span
		}
	}
	return s
}
