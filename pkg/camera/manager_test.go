package camera

import (
	"strings"
	"testing"
)

func TestManagerSetConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied []Config
	m.OnConfigChange = func(cfg Config) error {
		applied = append(applied, cfg)
		return nil
	}

	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	if err := m.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	got := m.GetConfig()
	if got.Width != 1920 || got.Height != 1080 {
		t.Errorf("GetConfig() = %dx%d, want 1920x1080", got.Width, got.Height)
	}
	if len(applied) != 1 {
		t.Errorf("OnConfigChange called %d times, want 1", len(applied))
	}
}

func TestManagerSetConfigInvalid(t *testing.T) {
	m := NewManager(DefaultConfig())

	cfg := DefaultConfig()
	cfg.Quality = 0
	if err := m.SetConfig(cfg); err == nil {
		t.Fatal("SetConfig() expected validation error")
	}

	// Rejected config must not replace the stored one.
	if got := m.GetConfig().Quality; got != DefaultConfig().Quality {
		t.Errorf("Quality = %d, want %d", got, DefaultConfig().Quality)
	}
}

func TestManagerUpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	err := m.UpdateConfig(map[string]interface{}{
		"width":      float64(1920), // JSON numbers arrive as float64
		"height":     float64(1080),
		"brightness": 0.7,
	})
	if err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	got := m.GetConfig()
	if got.Width != 1920 {
		t.Errorf("Width = %d, want 1920", got.Width)
	}
	if got.Brightness != 0.7 {
		t.Errorf("Brightness = %v, want 0.7", got.Brightness)
	}
	// Untouched fields survive.
	if got.Quality != DefaultConfig().Quality {
		t.Errorf("Quality = %d, want %d", got.Quality, DefaultConfig().Quality)
	}
}

func TestManagerUpdateConfigPreset(t *testing.T) {
	m := NewManager(DefaultConfig())

	err := m.UpdateConfig(map[string]interface{}{
		"preset":  "night",
		"quality": float64(70),
	})
	if err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}

	got := m.GetConfig()
	night := NightModeConfig()
	if got.Gain != night.Gain {
		t.Errorf("Gain = %v, want night preset %v", got.Gain, night.Gain)
	}
	// Overrides on top of the preset still apply.
	if got.Quality != 70 {
		t.Errorf("Quality = %d, want 70", got.Quality)
	}
}

func TestManagerUpdateConfigUnknown(t *testing.T) {
	m := NewManager(DefaultConfig())

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{name: "unknown preset", params: map[string]interface{}{"preset": "bogus"}},
		{name: "unknown field", params: map[string]interface{}{"zoom": 2.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.UpdateConfig(tt.params); err == nil {
				t.Error("UpdateConfig() expected error")
			}
		})
	}
}

func TestManagerCallbackError(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.OnConfigChange = func(cfg Config) error {
		return &mockApplyError{}
	}

	err := m.SetConfig(DefaultConfig())
	if err == nil || !strings.Contains(err.Error(), "failed to apply") {
		t.Errorf("SetConfig() error = %v, want apply failure", err)
	}
}

type mockApplyError struct{}

func (e *mockApplyError) Error() string { return "device rejected config" }

func TestManagerGetConfigJSON(t *testing.T) {
	m := NewManager(DefaultConfig())
	data := m.GetConfigJSON()

	if data["width"] != float64(DefaultConfig().Width) {
		t.Errorf("json width = %v, want %d", data["width"], DefaultConfig().Width)
	}
	if _, ok := data["brightness"]; !ok {
		t.Error("json missing brightness field")
	}
}
