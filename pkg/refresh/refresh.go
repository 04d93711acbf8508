// Package refresh implements a pseudo-live image poller. It repeatedly
// fetches a still-image endpoint with cache-busting query parameters,
// fully loads each response, and only then hands the frame to a display
// sink, so viewers never see a partial image.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Default loop tuning.
const (
	DefaultInterval  = 100 * time.Millisecond
	DefaultRetryWait = 500 * time.Millisecond
	DefaultRetryMax  = 10 * time.Second

	// randRange bounds the cache-busting draw: rnd = draw + 1, so the
	// query parameter is always in [1, randRange].
	randRange = 1_000_000
)

// Policy selects what the loop does when a frame fails to load.
type Policy int

const (
	// PolicyHalt stops the loop on the first failed load. The error is
	// logged and returned from Run; the sink keeps the last good frame.
	PolicyHalt Policy = iota

	// PolicyRetry re-attempts the same frame with capped exponential
	// backoff. The sequence number does not advance on failed attempts.
	PolicyRetry
)

// Config controls a Refresher.
type Config struct {
	// URL is the still-image endpoint, without a query string.
	// Cache-busting parameters are appended on every fetch.
	URL string

	// Interval is the pause after each published frame, before the next
	// fetch begins. It is a fixed gap, not a tick rate: the effective
	// cadence is load time plus Interval. Zero means DefaultInterval.
	Interval time.Duration

	// MaxFrames stops the loop after this many published frames.
	// Zero means run until the context is cancelled or a load fails.
	MaxFrames int

	// OnError selects the failure policy. The zero value is PolicyHalt.
	OnError Policy

	// RetryWait and RetryMax tune PolicyRetry backoff.
	RetryWait time.Duration
	RetryMax  time.Duration

	// Loader fetches and decodes frames. Nil means an HTTPLoader with
	// the shared client.
	Loader Loader

	// Sink receives every successfully loaded frame.
	Sink Sink

	// Logger for loop events. Nil means slog.Default().
	Logger *slog.Logger

	// Rand draws the cache-busting value, returning an int in [0, n).
	// Nil means math/rand/v2. Tests inject a fixed draw here.
	Rand func(n int) int
}

// Refresher runs the poll loop. Create one with New and start it with Run.
type Refresher struct {
	cfg Config
	log *slog.Logger
	seq atomic.Uint64
}

// New validates the config, fills in defaults and returns a Refresher.
func New(cfg Config) (*Refresher, error) {
	if cfg.URL == "" {
		return nil, errors.New("refresh: URL is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("refresh: Sink is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = DefaultRetryWait
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = DefaultRetryMax
	}
	if cfg.Loader == nil {
		cfg.Loader = &HTTPLoader{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.IntN
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{cfg: cfg, log: log}, nil
}

// Seq returns the number of successfully published frames. During the
// loop it is also the sequence number of the frame being fetched.
func (r *Refresher) Seq() uint64 {
	return r.seq.Load()
}

// Run executes the poll loop until the context is cancelled, MaxFrames
// frames have been published, or a failure stops it per the policy.
// It returns nil after MaxFrames, the context error on cancellation,
// and the wrapped load or display error otherwise.
func (r *Refresher) Run(ctx context.Context) error {
	r.log.Info("refresher started",
		"url", r.cfg.URL,
		"interval", r.cfg.Interval,
		"max_frames", r.cfg.MaxFrames)

	backoff := r.cfg.RetryWait
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		seq := r.seq.Load()
		url := r.buildURL(seq)

		frame, err := r.cfg.Loader.Load(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.cfg.OnError == PolicyRetry {
				r.log.Warn("frame load failed, retrying",
					"seq", seq, "backoff", backoff, "err", err)
				if err := sleep(ctx, backoff); err != nil {
					return err
				}
				backoff = min(backoff*2, r.cfg.RetryMax)
				continue
			}
			r.log.Error("frame load failed, halting", "seq", seq, "url", url, "err", err)
			return fmt.Errorf("refresh: load frame %d: %w", seq, err)
		}
		backoff = r.cfg.RetryWait

		frame.Seq = seq
		if err := r.cfg.Sink.Display(ctx, frame); err != nil {
			r.log.Error("frame display failed", "seq", seq, "err", err)
			return fmt.Errorf("refresh: display frame %d: %w", seq, err)
		}
		published := r.seq.Add(1)

		r.log.Debug("frame published",
			"seq", seq,
			"bytes", len(frame.Data),
			"width", frame.Width,
			"height", frame.Height)

		if r.cfg.MaxFrames > 0 && published >= uint64(r.cfg.MaxFrames) {
			r.log.Info("refresher done", "frames", published)
			return nil
		}

		if err := sleep(ctx, r.cfg.Interval); err != nil {
			return err
		}
	}
}

// buildURL appends the cache-busting query parameters for one fetch.
// The rnd value is drawn fresh on every call, including retries.
func (r *Refresher) buildURL(seq uint64) string {
	return fmt.Sprintf("%s?seq=%d&rnd=%d", r.cfg.URL, seq, r.cfg.Rand(randRange)+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
