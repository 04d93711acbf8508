package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/esimov/stackblur-go"
)

const (
	// defaultBlurRadius matches a strong, clearly unrecognizable blur.
	defaultBlurRadius = 20

	// facePadding widens the blurred box beyond the detection, as a
	// fraction of the face size.
	facePadding = 0.1
)

// Blur is a frame filter that hides detected faces with a stack blur
// pass. It plugs into the capture loop, so a detector error means the
// frame is dropped rather than published unblurred.
type Blur struct {
	det     Detector
	radius  uint32
	quality int
}

// NewBlur wraps a detector into a privacy filter. Zero radius and
// quality get defaults.
func NewBlur(det Detector, radius uint32, quality int) *Blur {
	if radius == 0 {
		radius = defaultBlurRadius
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Blur{det: det, radius: radius, quality: quality}
}

// Process blurs every detected face region and re-encodes the frame.
// Frames without faces pass through untouched.
func (f *Blur) Process(data []byte, width, height int) ([]byte, error) {
	faces, err := f.det.Detect(data)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(faces) == 0 {
		return data, nil
	}

	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for _, face := range faces {
		r := faceRect(face, bounds)
		if r.Empty() {
			continue
		}
		region := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
		draw.Draw(region, region.Bounds(), canvas, r.Min, draw.Src)
		blurred, err := stackblur.Process(region, f.radius)
		if err != nil {
			return nil, fmt.Errorf("blur face: %w", err)
		}
		draw.Draw(canvas, r, blurred, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: f.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// faceRect converts a normalized detection to padded pixel bounds
// clamped to the frame.
func faceRect(d Detection, bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	padX, padY := d.W*facePadding, d.H*facePadding
	r := image.Rect(
		int((d.X-padX)*w),
		int((d.Y-padY)*h),
		int((d.X+d.W+padX)*w),
		int((d.Y+d.H+padY)*h),
	)
	return r.Intersect(bounds)
}
