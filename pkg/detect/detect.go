// Package detect finds faces in JPEG frames and powers the privacy blur.
package detect

// Detection represents a detected face. X and Y are the top-left corner,
// all fields are fractions of the frame size.
type Detection struct {
	X, Y       float64
	W, H       float64
	Confidence float64 // cascade quality score, higher is better
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect finds faces in the image and returns their positions
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	CascadePath string  // path to the binary cascade file
	MinQuality  float64 // cascade quality cutoff
	MinSize     int     // smallest face in pixels
	MaxSize     int     // largest face in pixels
	ShiftFactor float64 // detection window shift per step
	ScaleFactor float64 // window growth between scales
	IoU         float64 // cluster overlap threshold
}

// DefaultConfig returns the production cascade settings.
func DefaultConfig() Config {
	return Config{
		CascadePath: "cascade/facefinder",
		MinQuality:  5.0,
		MinSize:     20,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
	}
}

// SelectBest picks the face to report when several are found. Confidence
// and area are normalized against the strongest candidate so raw quality
// scores of any scale compare cleanly.
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}
	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea, maxConf := 0.0, 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
		if d.Confidence > maxConf {
			maxConf = d.Confidence
		}
	}
	if maxArea == 0 || maxConf == 0 {
		return &dets[0]
	}

	bestScore := -1.0
	var best *Detection
	for i := range dets {
		score := (dets[i].Confidence/maxConf)*0.7 + (dets[i].Area()/maxArea)*0.3
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}
	return best
}
