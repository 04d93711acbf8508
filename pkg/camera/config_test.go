package camera

import (
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Config)
		wantErrs int
	}{
		{
			name:     "default config is valid",
			modify:   func(c *Config) {},
			wantErrs: 0,
		},
		{
			name:     "width too small",
			modify:   func(c *Config) { c.Width = 100 },
			wantErrs: 1,
		},
		{
			name:     "width too large",
			modify:   func(c *Config) { c.Width = 4000 },
			wantErrs: 1,
		},
		{
			name:     "zero framerate",
			modify:   func(c *Config) { c.Framerate = 0 },
			wantErrs: 1,
		},
		{
			name:     "quality out of range",
			modify:   func(c *Config) { c.Quality = 101 },
			wantErrs: 1,
		},
		{
			name:     "brightness out of range",
			modify:   func(c *Config) { c.Brightness = 1.5 },
			wantErrs: 1,
		},
		{
			name:     "negative gain",
			modify:   func(c *Config) { c.Gain = -0.1 },
			wantErrs: 1,
		},
		{
			name: "multiple violations",
			modify: func(c *Config) {
				c.Width = 0
				c.Height = 0
				c.Quality = 0
			},
			wantErrs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			errs := cfg.Validate()
			if len(errs) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrs)
			}
		})
	}
}

func TestPresetsAllValid(t *testing.T) {
	for name, cfg := range Presets() {
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %s is invalid: %v", name, errs)
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset(Preset1080p)
	if cfg == nil {
		t.Fatal("GetPreset(1080p) = nil")
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("1080p preset = %dx%d, want 1920x1080", cfg.Width, cfg.Height)
	}

	if got := GetPreset("nonexistent"); got != nil {
		t.Errorf("GetPreset(nonexistent) = %v, want nil", got)
	}
}

func TestPresetNamesMatchPresets(t *testing.T) {
	presets := Presets()
	for _, name := range PresetNames() {
		if _, ok := presets[name]; !ok {
			t.Errorf("PresetNames() lists %s but Presets() lacks it", name)
		}
	}
	if len(PresetNames()) != len(presets) {
		t.Errorf("PresetNames() has %d entries, Presets() has %d", len(PresetNames()), len(presets))
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "1280x720", want: Format{Width: 1280, Height: 720}},
		{input: "1920x1080/30", want: Format{Width: 1920, Height: 1080, FPS: 30}},
		{input: "640x480/5", want: Format{Width: 640, Height: 480, FPS: 5}},
		{input: "bogus", wantErr: true},
		{input: "1280", wantErr: true},
		{input: "1280x", wantErr: true},
		{input: "x720", wantErr: true},
		{input: "1280x720/0", wantErr: true},
		{input: "1280x720/abc", wantErr: true},
		{input: "-640x480", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseFormat(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	f := Format{Width: 1280, Height: 720, FPS: 30}
	if got := f.String(); got != "1280x720/30" {
		t.Errorf("String() = %q, want 1280x720/30", got)
	}

	parsed, err := ParseFormat(f.String())
	if err != nil {
		t.Fatalf("ParseFormat(String()) error = %v", err)
	}
	if parsed != f {
		t.Errorf("round trip = %+v, want %+v", parsed, f)
	}
}
