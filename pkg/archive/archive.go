// Package archive persists camera frames to disk: one still per archive
// tick plus a rolling MJPEG AVI segment, with an SQLite catalog and
// age-based retention.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rymis/httpcam/internal/log"
	"github.com/rymis/httpcam/pkg/mjpeg"
)

const (
	// DefaultFPS is how many frames per second the archive keeps.
	DefaultFPS = 1

	// DefaultMaxAge is ten days of retention.
	DefaultMaxAge = 10 * 24 * time.Hour

	// DefaultSegmentFrames caps a segment, an hour at one frame per second.
	DefaultSegmentFrames = 3600

	// DefaultSweepEvery is the retention sweep cadence.
	DefaultSweepEvery = 10 * time.Minute

	// IndexFile is the catalog database name inside the archive directory.
	IndexFile = "index.db"
)

// Config holds the archive settings.
type Config struct {
	// Dir is the archive directory, created if missing.
	Dir string

	// FPS caps how many incoming frames per second are kept.
	FPS int

	// MaxAge is how long stills and segments are retained.
	MaxAge time.Duration

	// SegmentFrames rolls the AVI segment after this many frames.
	SegmentFrames int

	// SweepEvery is how often the retention sweep runs.
	SweepEvery time.Duration
}

// Archive accepts frames from the capture loop and keeps a rate-limited
// trail of them on disk. Add is the capture Recorder hook; Run drives
// retention in the background.
type Archive struct {
	cfg Config
	ix  *Index
	lim *rate.Limiter

	mu  sync.Mutex
	cur *segment
}

// segment is the AVI file currently being appended to.
type segment struct {
	id      string
	path    string
	writer  *mjpeg.Writer
	started int64
	width   int
	height  int
}

// New creates the archive directory and opens the segment index.
func New(cfg Config) (*Archive, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("archive: directory is required")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.SegmentFrames <= 0 {
		cfg.SegmentFrames = DefaultSegmentFrames
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = DefaultSweepEvery
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create directory: %w", err)
	}
	ix, err := OpenIndex(filepath.Join(cfg.Dir, IndexFile))
	if err != nil {
		return nil, err
	}

	return &Archive{
		cfg: cfg,
		ix:  ix,
		lim: rate.NewLimiter(rate.Limit(cfg.FPS), 1),
	}, nil
}

// Add keeps the frame if the archive rate allows it: the still is
// written next to the growing AVI segment. Frames over the rate are
// dropped silently.
func (a *Archive) Add(data []byte, width, height int) error {
	if !a.lim.Allow() {
		return nil
	}
	now := time.Now().UnixMilli()

	still := filepath.Join(a.cfg.Dir, fmt.Sprintf("frame_%d.jpg", now))
	if err := os.WriteFile(still, data, 0o644); err != nil {
		return fmt.Errorf("archive: write still: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// A resolution change cannot continue the current segment.
	if a.cur != nil && (a.cur.width != width || a.cur.height != height) {
		if err := a.roll(now); err != nil {
			return err
		}
	}
	if a.cur == nil {
		if err := a.open(now, width, height); err != nil {
			return err
		}
	}

	err := a.cur.writer.AddFrame(data)
	if errors.Is(err, mjpeg.ErrTooLarge) {
		if err := a.roll(now); err != nil {
			return err
		}
		if err := a.open(now, width, height); err != nil {
			return err
		}
		err = a.cur.writer.AddFrame(data)
	}
	if err != nil {
		return fmt.Errorf("archive: append segment: %w", err)
	}

	if a.cur.writer.Frames() >= a.cfg.SegmentFrames {
		return a.roll(time.Now().UnixMilli())
	}
	return nil
}

// List returns the most recent catalog entries, newest first.
func (a *Archive) List(ctx context.Context, limit int) ([]Segment, error) {
	return a.ix.List(ctx, limit)
}

// Run performs the retention sweep until ctx is cancelled.
func (a *Archive) Run(ctx context.Context) error {
	if n, err := a.sweep(time.Now()); err != nil {
		log.Warn("archive sweep failed", "error", err)
	} else if n > 0 {
		log.Info("archive sweep", "removed", n)
	}

	ticker := time.NewTicker(a.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := a.sweep(time.Now()); err != nil {
				log.Warn("archive sweep failed", "error", err)
			} else if n > 0 {
				log.Info("archive sweep", "removed", n)
			}
		}
	}
}

// Close finishes the open segment and closes the catalog.
func (a *Archive) Close() error {
	a.mu.Lock()
	err := a.roll(time.Now().UnixMilli())
	a.mu.Unlock()

	if cerr := a.ix.Close(); err == nil {
		err = cerr
	}
	return err
}

// roll finishes the current segment. Callers hold a.mu.
func (a *Archive) roll(now int64) error {
	if a.cur == nil {
		return nil
	}
	cur := a.cur
	a.cur = nil

	frames := cur.writer.Frames()
	if err := cur.writer.Close(); err != nil {
		return fmt.Errorf("archive: close segment: %w", err)
	}
	if err := a.ix.Finish(cur.id, now, frames); err != nil {
		return err
	}
	log.Debug("segment finished", "path", cur.path, "frames", frames)
	return nil
}

// open starts a new segment and catalogs it. Callers hold a.mu.
func (a *Archive) open(now int64, width, height int) error {
	path := filepath.Join(a.cfg.Dir, fmt.Sprintf("seg_%d.avi", now))
	w, err := mjpeg.New(path, width, height, a.cfg.FPS)
	if err != nil {
		return fmt.Errorf("archive: open segment: %w", err)
	}

	seg := &segment{
		id:      NewSegmentID(),
		path:    path,
		writer:  w,
		started: now,
		width:   width,
		height:  height,
	}
	if err := a.ix.Begin(Segment{
		ID:        seg.id,
		Path:      path,
		StartedAt: now,
		Width:     width,
		Height:    height,
	}); err != nil {
		w.Close()
		os.Remove(path)
		return err
	}

	a.cur = seg
	log.Debug("segment started", "path", path)
	return nil
}

// currentPath reports the segment file being written, if any.
func (a *Archive) currentPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur == nil {
		return ""
	}
	return a.cur.path
}
