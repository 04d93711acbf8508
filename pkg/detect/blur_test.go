package detect

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// checkerJPEG renders a dark frame with a high-contrast checkerboard in
// the middle half, the "face" the blur has to flatten.
func checkerJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{0x20, 0x20, 0x20, 0xff}
			inFace := x >= w/4 && x < 3*w/4 && y >= h/4 && y < 3*h/4
			if inFace && (x/2+y/2)%2 == 0 {
				c = color.RGBA{0xff, 0xff, 0xff, 0xff}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

// contrast is the gray level spread over the middle half of the image.
func contrast(t *testing.T, data []byte) int {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	lo, hi := 255, 0
	for y := b.Dy() / 4; y < 3*b.Dy()/4; y++ {
		for x := b.Dx() / 4; x < 3*b.Dx()/4; x++ {
			g := int(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			if g < lo {
				lo = g
			}
			if g > hi {
				hi = g
			}
		}
	}
	return hi - lo
}

func TestBlurNoFaces(t *testing.T) {
	data := checkerJPEG(t, 80, 80)
	f := NewBlur(&MockDetector{}, 10, 90)

	out, err := f.Process(data, 80, 80)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("frame without faces was modified")
	}
}

func TestBlurFlattensFaceRegion(t *testing.T) {
	data := checkerJPEG(t, 80, 80)
	det := &MockDetector{Detections: []Detection{
		{X: 0.25, Y: 0.25, W: 0.5, H: 0.5, Confidence: 30},
	}}
	f := NewBlur(det, 10, 90)

	out, err := f.Process(data, 80, 80)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	before, after := contrast(t, data), contrast(t, out)
	if before < 150 {
		t.Fatalf("test image contrast = %d, expected a sharp checkerboard", before)
	}
	if after > 100 {
		t.Errorf("face region contrast after blur = %d, want < 100", after)
	}

	// The corner outside the face stays dark.
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if g := color.GrayModel.Convert(img.At(2, 2)).(color.Gray).Y; g > 0x40 {
		t.Errorf("corner pixel = %#x, blur leaked outside the face", g)
	}
}

func TestBlurKeepsFrameSize(t *testing.T) {
	data := checkerJPEG(t, 64, 48)
	det := &MockDetector{Detections: []Detection{
		{X: 0.1, Y: 0.1, W: 0.3, H: 0.3, Confidence: 10},
	}}
	f := NewBlur(det, 0, 0) // defaults

	out, err := f.Process(data, 64, 48)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("result size = %dx%d, want 64x48", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestBlurDetectorError(t *testing.T) {
	det := &MockDetector{Err: errors.New("cascade exploded")}
	f := NewBlur(det, 10, 90)

	if _, err := f.Process(checkerJPEG(t, 32, 32), 32, 32); err == nil {
		t.Fatal("expected error when the detector fails")
	}
}

func TestFaceRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	tests := []struct {
		name string
		det  Detection
		want image.Rectangle
	}{
		{
			name: "clamped at origin",
			det:  Detection{X: 0, Y: 0, W: 0.5, H: 0.5},
			want: image.Rect(0, 0, 55, 55),
		},
		{
			name: "padded interior box",
			det:  Detection{X: 0.2, Y: 0.2, W: 0.2, H: 0.2},
			want: image.Rect(18, 18, 42, 42),
		},
		{
			name: "outside the frame",
			det:  Detection{X: 1.2, Y: 1.2, W: 0.1, H: 0.1},
			want: image.Rectangle{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := faceRect(tc.det, bounds)
			if tc.want.Empty() {
				if !got.Empty() {
					t.Errorf("faceRect() = %v, want empty", got)
				}
				return
			}
			if got != tc.want {
				t.Errorf("faceRect() = %v, want %v", got, tc.want)
			}
		})
	}
}
