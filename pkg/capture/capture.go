// Package capture runs the frame grab loop and owns the camera device.
//
// The device is not goroutine-safe, so every touch of it happens on the
// loop goroutine: frames are read there, and control requests from HTTP
// handlers are marshaled onto the loop through a command channel and
// answered over per-request reply channels.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rymis/httpcam/internal/log"
	"github.com/rymis/httpcam/pkg/camera"
	"github.com/rymis/httpcam/pkg/frame"
	"github.com/rymis/httpcam/pkg/hub"
)

const (
	// maxReadFailures is how many consecutive device errors we tolerate
	// before giving up on the camera.
	maxReadFailures = 10

	// readRetryWait is the pause after a failed device read.
	readRetryWait = 250 * time.Millisecond
)

// Recorder receives every published frame, typically the disk archive.
type Recorder interface {
	Add(data []byte, width, height int) error
}

// Filter transforms a frame before it is published, e.g. a privacy blur.
type Filter interface {
	Process(data []byte, width, height int) ([]byte, error)
}

// Config wires the capture service together.
type Config struct {
	Device  camera.Device
	Manager *camera.Manager
	Cache   *frame.Cache

	// Hub receives each frame as a binary message. Optional.
	Hub *hub.Hub

	// Recorder receives each frame after publishing. Optional.
	Recorder Recorder

	// Filter runs before the frame is published anywhere. Optional.
	Filter Filter
}

// Command is a control request executed on the capture loop between frames.
type Command struct {
	Method string
	Args   json.RawMessage
}

type reply struct {
	data json.RawMessage
	err  error
}

type request struct {
	cmd   Command
	reply chan reply
}

// Status is a snapshot of the capture loop for /api/status.
type Status struct {
	Frames  uint64  `json:"frames"`
	FPS     float64 `json:"fps"`
	Uptime  float64 `json:"uptime_seconds"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	LastErr string  `json:"last_error,omitempty"`
}

// Service owns the device and publishes frames to the cache, the hub and
// the recorder.
//
// After Run starts, all configuration changes must go through Do so they
// execute on the loop goroutine. The service installs itself as the
// manager's change callback.
type Service struct {
	dev      camera.Device
	mgr      *camera.Manager
	cache    *frame.Cache
	hub      *hub.Hub
	recorder Recorder
	filter   Filter

	requests chan request

	// retryWait pauses the loop after a failed read, shortened in tests.
	retryWait time.Duration

	stats stats
}

// New validates the wiring and prepares the service. The device stays
// untouched until Run.
func New(cfg Config) (*Service, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("capture: device is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("capture: frame cache is required")
	}
	if cfg.Manager == nil {
		cfg.Manager = camera.NewManager(camera.DefaultConfig())
	}

	s := &Service{
		dev:       cfg.Device,
		mgr:       cfg.Manager,
		cache:     cfg.Cache,
		hub:       cfg.Hub,
		recorder:  cfg.Recorder,
		filter:    cfg.Filter,
		requests:  make(chan request, 16),
		retryWait: readRetryWait,
	}
	s.mgr.OnConfigChange = s.applyConfig
	return s, nil
}

// Run drives the grab loop until ctx is cancelled or the device fails
// repeatedly. It blocks.
func (s *Service) Run(ctx context.Context) error {
	s.stats.start()

	failures := 0
	for {
		s.drain()

		if err := ctx.Err(); err != nil {
			return err
		}

		began := time.Now()
		data, w, h, err := s.dev.Read()
		if err != nil {
			failures++
			s.stats.fail(err)
			log.Warn("frame read failed", "error", err, "failures", failures)
			if failures >= maxReadFailures {
				return fmt.Errorf("capture: device failed %d times: %w", failures, err)
			}
			if err := sleep(ctx, s.retryWait); err != nil {
				return err
			}
			continue
		}
		failures = 0

		if s.filter != nil {
			data, err = s.filter.Process(data, w, h)
			if err != nil {
				// Never publish an unfiltered frame.
				s.stats.fail(err)
				log.Warn("frame filter failed, frame dropped", "error", err)
				if err := s.pace(ctx, began); err != nil {
					return err
				}
				continue
			}
		}

		f := s.cache.Update(data, w, h)
		if s.hub != nil {
			s.hub.BroadcastBinary(data)
		}
		if s.recorder != nil {
			if err := s.recorder.Add(data, w, h); err != nil {
				s.stats.fail(err)
				log.Warn("archive write failed", "error", err, "seq", f.Seq)
			}
		}
		s.stats.frame(w, h)

		if err := s.pace(ctx, began); err != nil {
			return err
		}
	}
}

// Do submits a command to the loop and waits for the answer.
func (s *Service) Do(ctx context.Context, cmd Command) (json.RawMessage, error) {
	req := request{cmd: cmd, reply: make(chan reply, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status reports loop counters. Safe to call from any goroutine.
func (s *Service) Status() Status {
	return s.stats.snapshot()
}

// drain handles all queued commands without blocking the grab cadence.
// Every dequeued request gets an answer, the reply channels are buffered.
func (s *Service) drain() {
	for {
		select {
		case req := <-s.requests:
			data, err := s.handle(req.cmd)
			req.reply <- reply{data: data, err: err}
		default:
			return
		}
	}
}

// pace sleeps out the rest of the frame interval. A real device blocks in
// Read at the driver rate so the remainder is usually zero; the mock
// returns instantly and relies on this.
func (s *Service) pace(ctx context.Context, began time.Time) error {
	fps := s.mgr.GetConfig().Framerate
	if fps <= 0 {
		fps = camera.DefaultConfig().Framerate
	}
	interval := time.Second / time.Duration(fps)
	if rest := interval - time.Since(began); rest > 0 {
		return sleep(ctx, rest)
	}
	return nil
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
