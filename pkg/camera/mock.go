package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// MockDevice is a synthetic frame source for testing and for running
// the server without hardware. It renders a gradient background with a
// block that moves one step per frame.
type MockDevice struct {
	format   Format
	quality  int
	frame    int
	controls map[string]float64
	closed   bool
}

// NewMockDevice creates a mock device. Zero format fields get the
// legacy 640x480 defaults.
func NewMockDevice(f Format) *MockDevice {
	if f.Width <= 0 {
		f.Width = 640
	}
	if f.Height <= 0 {
		f.Height = 480
	}
	if f.FPS <= 0 {
		f.FPS = 30
	}
	controls := make(map[string]float64, len(ControlNames()))
	for _, name := range ControlNames() {
		controls[name] = 0.5
	}
	return &MockDevice{format: f, quality: 85, controls: controls}
}

// SetQuality changes the JPEG encode quality for subsequent frames.
func (d *MockDevice) SetQuality(q int) {
	if q > 0 && q <= 100 {
		d.quality = q
	}
}

// Read renders and encodes the next synthetic frame.
func (d *MockDevice) Read() ([]byte, int, int, error) {
	if d.closed {
		return nil, 0, 0, fmt.Errorf("camera: mock device is closed")
	}

	w, h := d.format.Width, d.format.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 0x40,
				A: 0xFF,
			})
		}
	}

	// Moving block so consecutive frames differ.
	size := w / 10
	if size < 4 {
		size = 4
	}
	offset := (d.frame * 8) % (w - size)
	for y := h/2 - size/2; y < h/2+size/2; y++ {
		for x := offset; x < offset+size; x++ {
			img.Set(x, y, color.White)
		}
	}
	d.frame++

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("camera: encode mock frame: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// Format returns the active format.
func (d *MockDevice) Format() Format {
	return d.format
}

// SetFormat switches the synthetic frame size.
func (d *MockDevice) SetFormat(f Format) error {
	if f.Width > 0 {
		d.format.Width = f.Width
	}
	if f.Height > 0 {
		d.format.Height = f.Height
	}
	if f.FPS > 0 {
		d.format.FPS = f.FPS
	}
	return nil
}

// Formats lists the common webcam formats.
func (d *MockDevice) Formats() []Format {
	return CommonFormats()
}

// Controls returns the stored control values.
func (d *MockDevice) Controls() []Control {
	controls := make([]Control, 0, len(d.controls))
	for _, name := range ControlNames() {
		controls = append(controls, Control{Name: name, Value: d.controls[name]})
	}
	return controls
}

// SetControl stores a control value.
func (d *MockDevice) SetControl(name string, value float64) error {
	if _, ok := d.controls[name]; !ok {
		return fmt.Errorf("camera: unknown control %q", name)
	}
	d.controls[name] = value
	return nil
}

// Frames returns how many frames have been read.
func (d *MockDevice) Frames() int {
	return d.frame
}

// Close marks the device closed; further reads fail.
func (d *MockDevice) Close() error {
	d.closed = true
	return nil
}
