package refresh

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rymis/httpcam/internal/httpc"
)

// DefaultMaxBytes caps how much of a response body a loader reads.
const DefaultMaxBytes = 16 << 20

// Frame is one fully loaded image.
type Frame struct {
	URL     string    // fetch URL including cache-busting parameters
	Seq     uint64    // sequence number assigned by the loop
	Data    []byte    // raw encoded bytes as served
	Width   int       // decoded pixel width
	Height  int       // decoded pixel height
	Fetched time.Time // when the fetch completed
}

// Loader fetches a URL and confirms it decodes as an image.
type Loader interface {
	Load(ctx context.Context, url string) (Frame, error)
}

// HTTPLoader loads frames over HTTP. The zero value is ready to use
// with the shared client and DefaultMaxBytes.
type HTTPLoader struct {
	// Client overrides the shared HTTP client.
	Client *http.Client

	// MaxBytes caps the response body size. Zero means DefaultMaxBytes.
	MaxBytes int64
}

// Load fetches the URL and decodes the body. A non-2xx status, an
// oversized body, or a decode failure all count as a failed load.
func (l *HTTPLoader) Load(ctx context.Context, url string) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Frame{}, fmt.Errorf("refresh: build request: %w", err)
	}

	client := l.Client
	if client == nil {
		client = httpc.Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("refresh: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Frame{}, fmt.Errorf("refresh: fetch %s: unexpected status %s", url, resp.Status)
	}

	maxBytes := l.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return Frame{}, fmt.Errorf("refresh: read %s: %w", url, err)
	}
	if int64(len(data)) > maxBytes {
		return Frame{}, fmt.Errorf("refresh: fetch %s: body exceeds %d bytes", url, maxBytes)
	}

	// Full decode, not just the header: a truncated body must fail here,
	// before the frame reaches the sink.
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("refresh: decode %s: %w", url, err)
	}

	b := img.Bounds()
	return Frame{
		URL:     url,
		Data:    data,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Fetched: time.Now(),
	}, nil
}
