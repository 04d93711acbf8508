// Package web provides the camera HTTP surface: the latest still, an
// MJPEG stream, websocket feeds and the JSON control API.
package web

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"

	"github.com/rymis/httpcam/internal/log"
	"github.com/rymis/httpcam/pkg/archive"
	"github.com/rymis/httpcam/pkg/capture"
	"github.com/rymis/httpcam/pkg/frame"
	"github.com/rymis/httpcam/pkg/hub"
)

//go:embed static
var staticFiles embed.FS

// statusEvery is the cadence of status pushes to websocket clients.
const statusEvery = time.Second

// Config wires the server to the rest of the system.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Cache is the latest-frame store. Required.
	Cache *frame.Cache

	// Capture handles the control API. Optional; without it the JSON
	// API answers 503.
	Capture *capture.Service

	// Archive backs /api/archive. Optional.
	Archive *archive.Archive

	// CameraHub carries published frames to websocket viewers. Created
	// internally when nil; pass the capture loop's hub to share it.
	CameraHub *hub.Hub

	// RateLimit is the per-client request budget for /api in requests
	// per second. Zero uses the default of 10.
	RateLimit float64
}

// Server is the fiber application plus its broadcast hubs.
type Server struct {
	app  *fiber.App
	addr string

	cache   *frame.Cache
	capture *capture.Service
	archive *archive.Archive

	cameraHub *hub.Hub
	statusHub *hub.Hub

	limiter *ipLimiter

	// baseCtx outlives individual requests; stream handlers watch it
	// so shutdown does not strand them.
	baseCtx context.Context
}

// NewServer builds the application and its routes. Run starts serving.
func NewServer(cfg Config) *Server {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 10
	}
	cameraHub := cfg.CameraHub
	if cameraHub == nil {
		cameraHub = hub.New("camera")
	}

	s := &Server{
		addr:      cfg.Addr,
		cache:     cfg.Cache,
		capture:   cfg.Capture,
		archive:   cfg.Archive,
		cameraHub: cameraHub,
		statusHub: hub.New("status"),
		limiter:   newIPLimiter(rps, int(2*rps)),
		baseCtx:   context.Background(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "httpcam",
		DisableStartupMessage: true,
	})

	app.Use(requestLogger())
	app.Use(cors.New())

	app.Get("/image.jpg", s.handleImage)
	app.Get("/stream.mjpeg", s.handleStream)

	api := app.Group("/api", s.rateLimit)
	api.Get("/status", s.handleStatus)
	api.Get("/archive", s.handleArchive)
	api.All("/:method", s.handleAPI)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFiles),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	s.app = app
	return s
}

// CameraHub returns the hub that frame producers broadcast into.
func (s *Server) CameraHub() *hub.Hub {
	return s.cameraHub
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx

	go s.cameraHub.Run(ctx)
	go s.statusHub.Run(ctx)
	go s.pushStatus(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.addr)
	}()
	log.Info("web server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		<-errCh
		return ctx.Err()
	}
}

// pushStatus broadcasts the status snapshot to websocket subscribers.
func (s *Server) pushStatus(ctx context.Context) {
	ticker := time.NewTicker(statusEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() > 0 {
				s.statusHub.BroadcastJSON(s.statusSnapshot())
			}
		}
	}
}

// requestLogger logs each request at debug level.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"ip", c.IP(),
			"duration", time.Since(start).String(),
		)
		return err
	}
}
