package web

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/rymis/httpcam/pkg/archive"
	"github.com/rymis/httpcam/pkg/capture"
	"github.com/rymis/httpcam/pkg/hub"
)

// commandTimeout bounds how long a control request may wait for the
// capture loop.
const commandTimeout = 5 * time.Second

// StatusResponse is the /api/status and websocket status payload.
type StatusResponse struct {
	Capture       *capture.Status `json:"capture,omitempty"`
	Seq           uint64          `json:"seq"`
	CameraClients int             `json:"camera_clients"`
	StatusClients int             `json:"status_clients"`
	Time          string          `json:"time"`
}

func (s *Server) statusSnapshot() StatusResponse {
	resp := StatusResponse{
		Seq:           s.cache.Seq(),
		CameraClients: s.cameraHub.ClientCount(),
		StatusClients: s.statusHub.ClientCount(),
		Time:          time.Now().Format(time.RFC3339),
	}
	if s.capture != nil {
		st := s.capture.Status()
		resp.Capture = &st
	}
	return resp
}

// handleImage serves the most recent frame. The seq and rnd query
// parameters viewers append for cache busting are ignored on purpose.
func (s *Server) handleImage(c *fiber.Ctx) error {
	f := s.cache.Latest()
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set("X-Frame-Seq", strconv.FormatUint(f.Seq, 10))
	return c.Send(f.Data)
}

// handleStatus reports the capture loop, the frame counter and the
// websocket audience.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.statusSnapshot())
}

// handleArchive lists recorded segments, newest first.
func (s *Server) handleArchive(c *fiber.Ctx) error {
	if s.archive == nil {
		return c.JSON(fiber.Map{"enabled": false, "segments": []any{}})
	}

	limit := c.QueryInt("limit", 50)
	ctx, cancel := context.WithTimeout(s.baseCtx, commandTimeout)
	defer cancel()

	segs, err := s.archive.List(ctx, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if segs == nil {
		segs = []archive.Segment{}
	}
	return c.JSON(fiber.Map{"enabled": true, "segments": segs})
}

// handleAPI forwards /api/<method> to the capture loop. GET carries no
// arguments, POST bodies are passed through as the method arguments.
func (s *Server) handleAPI(c *fiber.Ctx) error {
	if s.capture == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "camera control not available",
		})
	}

	cmd := capture.Command{Method: c.Params("method")}
	if body := c.Body(); len(body) > 0 {
		cmd.Args = json.RawMessage(body)
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, commandTimeout)
	defer cancel()

	res, err := s.capture.Do(ctx, cmd)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}

// handleCameraWS feeds binary frames to one websocket viewer.
func (s *Server) handleCameraWS(conn *websocket.Conn) {
	hub.NewClient(s.cameraHub, conn).Run()
}

// handleStatusWS sends the current status immediately, then keeps the
// client on the status hub.
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	conn.WriteJSON(s.statusSnapshot())
	hub.NewClient(s.statusHub, conn).Run()
}
