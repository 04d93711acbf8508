package web

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rymis/httpcam/pkg/frame"
)

const (
	// streamBoundary separates parts in the multipart stream.
	streamBoundary = "frame"

	// streamKeepAlive resends the latest frame when no new one arrives,
	// so dead connections are noticed even on a stalled camera.
	streamKeepAlive = 5 * time.Second
)

// handleStream serves an MJPEG stream: each new frame is pushed as one
// multipart piece. Plain <img> tags can render it directly.
func (s *Server) handleStream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+streamBoundary)
	c.Set(fiber.HeaderCacheControl, "no-store")

	base := s.baseCtx
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		var seq uint64
		for {
			wctx, cancel := context.WithTimeout(base, streamKeepAlive)
			f, err := s.cache.Wait(wctx, seq)
			cancel()
			if err != nil {
				if base.Err() != nil {
					return
				}
				f = s.cache.Latest()
			}
			if err := writeStreamPart(w, f); err != nil {
				return
			}
			seq = f.Seq
		}
	})
	return nil
}

// writeStreamPart emits one multipart piece and flushes it to the client.
func writeStreamPart(w *bufio.Writer, f frame.Frame) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		streamBoundary, len(f.Data)); err != nil {
		return err
	}
	if _, err := w.Write(f.Data); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
