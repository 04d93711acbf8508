package detect

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// PigoDetector runs the pure Go pigo cascade classifier. It needs no
// native dependencies, a binary cascade file is enough.
type PigoDetector struct {
	cfg        Config
	classifier *pigo.Pigo
}

// NewPigoDetector loads the cascade from cfg.CascadePath.
func NewPigoDetector(cfg Config) (*PigoDetector, error) {
	def := DefaultConfig()
	if cfg.CascadePath == "" {
		cfg.CascadePath = def.CascadePath
	}
	if cfg.MinQuality <= 0 {
		cfg.MinQuality = def.MinQuality
	}
	if cfg.MinSize <= 0 {
		cfg.MinSize = def.MinSize
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.ShiftFactor <= 0 {
		cfg.ShiftFactor = def.ShiftFactor
	}
	if cfg.ScaleFactor <= 1 {
		cfg.ScaleFactor = def.ScaleFactor
	}
	if cfg.IoU <= 0 {
		cfg.IoU = def.IoU
	}

	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("detect: read cascade: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("detect: unpack cascade: %w", err)
	}
	return &PigoDetector{cfg: cfg, classifier: classifier}, nil
}

// Detect decodes the frame, runs the cascade over its grayscale pixels
// and returns clustered detections above the quality cutoff.
func (d *PigoDetector) Detect(jpegData []byte) ([]Detection, error) {
	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return nil, fmt.Errorf("detect: decode frame: %w", err)
	}
	bounds := img.Bounds()
	pixels := pigo.RgbToGrayscale(img)

	params := pigo.CascadeParams{
		MinSize:     d.cfg.MinSize,
		MaxSize:     d.cfg.MaxSize,
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   bounds.Dy(),
			Cols:   bounds.Dx(),
			Dim:    bounds.Dx(),
		},
	}

	found := d.classifier.RunCascade(params, 0.0)
	found = d.classifier.ClusterDetections(found, d.cfg.IoU)

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	res := make([]Detection, 0, len(found))
	for _, det := range found {
		if float64(det.Q) < d.cfg.MinQuality {
			continue
		}
		size := float64(det.Scale)
		res = append(res, Detection{
			X:          (float64(det.Col) - size/2) / w,
			Y:          (float64(det.Row) - size/2) / h,
			W:          size / w,
			H:          size / h,
			Confidence: float64(det.Q),
		})
	}
	return res, nil
}

// Close releases resources. The classifier holds none.
func (d *PigoDetector) Close() error {
	return nil
}
