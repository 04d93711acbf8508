package camera

import (
	"fmt"
	"strconv"
	"strings"
)

// Format describes one capture format of a device.
type Format struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`
}

// String formats as "WxH/fps", the form accepted by ParseFormat and the
// -resolution flag.
func (f Format) String() string {
	return fmt.Sprintf("%dx%d/%d", f.Width, f.Height, f.FPS)
}

// ParseFormat parses "WxH" or "WxH/fps". A missing fps part is zero,
// meaning keep the current rate.
func ParseFormat(s string) (Format, error) {
	var f Format

	size := s
	if i := strings.IndexByte(s, '/'); i >= 0 {
		size = s[:i]
		fps, err := strconv.Atoi(s[i+1:])
		if err != nil || fps <= 0 {
			return Format{}, fmt.Errorf("camera: invalid frame rate in %q", s)
		}
		f.FPS = fps
	}

	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return Format{}, fmt.Errorf("camera: invalid format %q, want WxH or WxH/fps", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Format{}, fmt.Errorf("camera: invalid width in %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Format{}, fmt.Errorf("camera: invalid height in %q", s)
	}
	f.Width = width
	f.Height = height
	return f, nil
}

// CommonFormats lists formats most webcams support, used when the
// device cannot enumerate its own.
func CommonFormats() []Format {
	return []Format{
		{Width: 640, Height: 480, FPS: 30},
		{Width: 800, Height: 600, FPS: 30},
		{Width: 1280, Height: 720, FPS: 30},
		{Width: 1920, Height: 1080, FPS: 30},
		{Width: 3840, Height: 2160, FPS: 15},
	}
}
