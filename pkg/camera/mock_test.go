package camera

import (
	"bytes"
	"image/jpeg"
	"testing"
)

func TestMockDeviceRead(t *testing.T) {
	d := NewMockDevice(Format{Width: 64, Height: 48, FPS: 30})

	data, w, h, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("frame size = %dx%d, want 64x48", w, h)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("frame does not decode: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("decoded width = %d, want 64", img.Bounds().Dx())
	}
}

func TestMockDeviceFramesDiffer(t *testing.T) {
	d := NewMockDevice(Format{Width: 64, Height: 48})

	a, _, _, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	b, _, _, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("consecutive frames are identical, pattern is not moving")
	}
	if d.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", d.Frames())
	}
}

func TestMockDeviceDefaults(t *testing.T) {
	d := NewMockDevice(Format{})
	f := d.Format()
	if f.Width != 640 || f.Height != 480 {
		t.Errorf("default format = %dx%d, want 640x480", f.Width, f.Height)
	}
}

func TestMockDeviceSetFormat(t *testing.T) {
	d := NewMockDevice(Format{})
	if err := d.SetFormat(Format{Width: 320, Height: 240}); err != nil {
		t.Fatalf("SetFormat() error = %v", err)
	}

	_, w, h, err := d.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if w != 320 || h != 240 {
		t.Errorf("frame size = %dx%d, want 320x240", w, h)
	}
}

func TestMockDeviceControls(t *testing.T) {
	d := NewMockDevice(Format{})

	if err := d.SetControl("brightness", 0.9); err != nil {
		t.Fatalf("SetControl() error = %v", err)
	}
	if err := d.SetControl("warp", 1.0); err == nil {
		t.Error("SetControl(warp) expected error")
	}

	var found bool
	for _, c := range d.Controls() {
		if c.Name == "brightness" {
			found = true
			if c.Value != 0.9 {
				t.Errorf("brightness = %v, want 0.9", c.Value)
			}
		}
	}
	if !found {
		t.Error("Controls() missing brightness")
	}
}

func TestMockDeviceClosed(t *testing.T) {
	d := NewMockDevice(Format{})
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, _, _, err := d.Read(); err == nil {
		t.Error("Read() after Close expected error")
	}
}
