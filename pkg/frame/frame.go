// Package frame holds the most recent camera frame for the rest of the
// server. Producers overwrite, consumers read the latest or wait for the
// next one; frames are never queued, a slow consumer just skips ahead.
package frame

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"
	"time"
)

// Frame is one encoded camera frame.
type Frame struct {
	Data   []byte // JPEG bytes
	Width  int
	Height int
	Seq    uint64
	Time   time.Time
}

// Placeholder frame size, served before the camera delivers anything.
const (
	placeholderWidth  = 640
	placeholderHeight = 480
)

// Cache stores the latest frame. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	latest  Frame
	changed chan struct{}
}

// NewCache returns a cache seeded with a generated placeholder frame,
// so image endpoints always have something to serve.
func NewCache() *Cache {
	return &Cache{
		latest:  placeholder(),
		changed: make(chan struct{}),
	}
}

// Update stores a new latest frame, assigns it the next sequence number
// and wakes all waiters. It returns the stored frame.
func (c *Cache) Update(data []byte, width, height int) Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest = Frame{
		Data:   data,
		Width:  width,
		Height: height,
		Seq:    c.latest.Seq + 1,
		Time:   time.Now(),
	}
	close(c.changed)
	c.changed = make(chan struct{})
	return c.latest
}

// Latest returns the most recent frame.
func (c *Cache) Latest() Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Seq returns the sequence number of the most recent frame. The seeded
// placeholder is sequence 0; the first camera frame is 1.
func (c *Cache) Seq() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest.Seq
}

// Wait blocks until a frame with a sequence number greater than afterSeq
// is available and returns it, or returns the context error.
func (c *Cache) Wait(ctx context.Context, afterSeq uint64) (Frame, error) {
	for {
		c.mu.RLock()
		latest := c.latest
		changed := c.changed
		c.mu.RUnlock()

		if latest.Seq > afterSeq {
			return latest, nil
		}

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-changed:
		}
	}
}

func placeholder() Frame {
	img := image.NewGray(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	for i := range img.Pix {
		img.Pix[i] = 0x30
	}
	var buf bytes.Buffer
	// Encoding into a buffer cannot fail.
	_ = jpeg.Encode(&buf, img, nil)
	return Frame{
		Data:   buf.Bytes(),
		Width:  placeholderWidth,
		Height: placeholderHeight,
		Time:   time.Now(),
	}
}
