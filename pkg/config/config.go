// Package config loads the httpcam YAML configuration file. Everything
// has a usable default so the daemon runs without any file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rymis/httpcam/internal/log"
	"github.com/rymis/httpcam/pkg/camera"
)

// Config is the top-level httpcam configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Camera  CameraConfig  `yaml:"camera"`
	Web     WebConfig     `yaml:"web"`
	Archive ArchiveConfig `yaml:"archive"`
	Privacy PrivacyConfig `yaml:"privacy"`
}

// CameraConfig selects the device and its initial settings.
type CameraConfig struct {
	// Device is the V4L2 device index.
	Device int `yaml:"device"`

	// Fake replaces the camera with a synthetic test pattern.
	Fake bool `yaml:"fake"`

	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	Framerate int `yaml:"framerate"`
	Quality   int `yaml:"quality"`

	// Picture controls, normalized 0-1. Zero keeps the driver default.
	Brightness float64 `yaml:"brightness"`
	Contrast   float64 `yaml:"contrast"`
	Saturation float64 `yaml:"saturation"`
	Gain       float64 `yaml:"gain"`
	Exposure   float64 `yaml:"exposure"`
}

// WebConfig tunes the HTTP surface.
type WebConfig struct {
	// RateLimit is the per-client API budget in requests per second.
	RateLimit float64 `yaml:"rate_limit"`
}

// ArchiveConfig controls recording. An empty Dir disables it.
type ArchiveConfig struct {
	Dir           string        `yaml:"dir"`
	FPS           int           `yaml:"fps"`
	MaxAge        time.Duration `yaml:"max_age"`
	SegmentFrames int           `yaml:"segment_frames"`
}

// PrivacyConfig controls face blurring on published frames.
type PrivacyConfig struct {
	BlurFaces  bool    `yaml:"blur_faces"`
	Cascade    string  `yaml:"cascade"`
	MinQuality float64 `yaml:"min_quality"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file and fills in defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	def := camera.DefaultConfig()
	if c.Camera.Width <= 0 {
		c.Camera.Width = def.Width
	}
	if c.Camera.Height <= 0 {
		c.Camera.Height = def.Height
	}
	if c.Camera.Framerate <= 0 {
		c.Camera.Framerate = def.Framerate
	}
	if c.Camera.Quality <= 0 {
		c.Camera.Quality = def.Quality
	}

	if c.Web.RateLimit <= 0 {
		c.Web.RateLimit = 10
	}

	if c.Archive.FPS <= 0 {
		c.Archive.FPS = 1
	}
	if c.Archive.MaxAge <= 0 {
		c.Archive.MaxAge = 24 * time.Hour
	}
	if c.Archive.SegmentFrames <= 0 {
		c.Archive.SegmentFrames = 3600
	}

	if c.Privacy.Cascade == "" {
		c.Privacy.Cascade = "cascade/facefinder"
	}
	if c.Privacy.MinQuality <= 0 {
		c.Privacy.MinQuality = 5.0
	}
}

// Validate rejects out-of-range settings with a single error.
func (c *Config) Validate() error {
	cam := c.CameraSettings()
	if errs := cam.Validate(); len(errs) > 0 {
		return fmt.Errorf("config: %s", errs[0])
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// CameraSettings converts the file section into camera settings.
func (c *Config) CameraSettings() camera.Config {
	return camera.Config{
		Width:      c.Camera.Width,
		Height:     c.Camera.Height,
		Framerate:  c.Camera.Framerate,
		Quality:    c.Camera.Quality,
		Brightness: c.Camera.Brightness,
		Contrast:   c.Camera.Contrast,
		Saturation: c.Camera.Saturation,
		Gain:       c.Camera.Gain,
		Exposure:   c.Camera.Exposure,
	}
}
