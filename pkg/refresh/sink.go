package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Sink is the display side of the loop. Implementations publish frames
// that have already fully loaded; a Display error stops the loop.
type Sink interface {
	Display(ctx context.Context, f Frame) error
}

// FuncSink adapts a function to the Sink interface.
type FuncSink func(ctx context.Context, f Frame) error

// Display calls fn.
func (fn FuncSink) Display(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// FileSink publishes frames to a fixed path. Each frame is written to a
// temporary file in the same directory and renamed into place, so a
// reader of the path never observes a partially written image.
type FileSink struct {
	Path string
}

// Display writes the frame bytes to the sink path.
func (s *FileSink) Display(_ context.Context, f Frame) error {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("refresh: create temp file: %w", err)
	}
	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("refresh: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("refresh: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("refresh: rename to %s: %w", s.Path, err)
	}
	return nil
}

// Router fans a frame out to all configured sinks. One failing sink
// does not block the others; errors are logged and the first one is
// returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Display delivers the frame to every sink.
func (r *Router) Display(ctx context.Context, f Frame) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Display(ctx, f); err != nil {
			r.logger.Warn("sink: display failed", "seq", f.Seq, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
