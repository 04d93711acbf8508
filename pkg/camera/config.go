// Package camera provides capture devices and runtime-configurable
// camera settings for httpcam. Devices deliver JPEG frames; the Manager
// holds the active configuration and applies API updates to the device.
package camera

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Format ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Capture rate in frames per second
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Picture controls ===
	// Values are normalized to 0.0-1.0 as exposed by the V4L2 backend.
	// Zero means leave the driver default in place.
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`

	// Gain is sensor gain (0 = driver default).
	Gain float64 `json:"gain"`

	// Exposure is manual exposure (0 = auto).
	Exposure float64 `json:"exposure"`
}

// Capture limits for consumer webcams.
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the recommended configuration: 720p at the
// archive-friendly 4 fps capture rate.
func DefaultConfig() Config {
	return Config{
		Width:     1280,
		Height:    720,
		Framerate: 4,
		Quality:   85,

		// Driver defaults for all picture controls
		Brightness: 0,
		Contrast:   0,
		Saturation: 0,
		Gain:       0,
		Exposure:   0,
	}
}

// LegacyConfig returns the original 640x480 configuration.
// Use this for old or bandwidth-constrained cameras.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	if c.Brightness < 0 || c.Brightness > 1 {
		errors = append(errors, "brightness must be between 0.0 and 1.0")
	}
	if c.Contrast < 0 || c.Contrast > 1 {
		errors = append(errors, "contrast must be between 0.0 and 1.0")
	}
	if c.Saturation < 0 || c.Saturation > 1 {
		errors = append(errors, "saturation must be between 0.0 and 1.0")
	}
	if c.Gain < 0 || c.Gain > 1 {
		errors = append(errors, "gain must be 0 (default) or between 0.0 and 1.0")
	}
	if c.Exposure < 0 || c.Exposure > 1 {
		errors = append(errors, "exposure must be 0 (auto) or between 0.0 and 1.0")
	}

	return errors
}

// ControlNames lists the picture controls settable at runtime.
func ControlNames() []string {
	return []string{"brightness", "contrast", "saturation", "gain", "exposure"}
}

// Capabilities returns the camera capability summary for the API.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"controls":      ControlNames(),
		"presets":       PresetNames(),
	}
}
