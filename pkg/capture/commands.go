package capture

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rymis/httpcam/pkg/camera"
)

// Wire method names. The UI posts these to /api/<method>.
const (
	MethodPing         = "ping"
	MethodListControls = "list_controls"
	MethodListFormats  = "list_resolution"
	MethodSetControl   = "set_control"
	MethodGetConfig    = "get_config"
	MethodSetConfig    = "set_config"
)

// handle executes one command on the loop goroutine.
func (s *Service) handle(cmd Command) (json.RawMessage, error) {
	switch cmd.Method {
	case MethodPing:
		// Echo the arguments back.
		if len(cmd.Args) == 0 {
			return json.RawMessage(`null`), nil
		}
		return cmd.Args, nil

	case MethodListControls:
		return marshal(s.listControls())

	case MethodListFormats:
		return marshal(s.listFormats())

	case MethodSetControl:
		return s.setControl(cmd.Args)

	case MethodGetConfig:
		return marshal(s.mgr.GetConfigJSON())

	case MethodSetConfig:
		return s.setConfig(cmd.Args)

	default:
		return nil, fmt.Errorf("unknown method: %s", cmd.Method)
	}
}

func marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

type controlInfo struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Flag  string  `json:"flag"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Value float64 `json:"value"`
}

func (s *Service) listControls() []controlInfo {
	controls := s.dev.Controls()
	res := make([]controlInfo, 0, len(controls))
	for _, c := range controls {
		res = append(res, controlInfo{
			Name:  c.Name,
			Type:  "number",
			Flag:  "manual",
			Min:   0,
			Max:   1,
			Value: c.Value,
		})
	}
	return res
}

type formatInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	FPS    int    `json:"fps"`
	Format string `json:"format"`
}

func (s *Service) listFormats() []formatInfo {
	formats := s.dev.Formats()
	res := make([]formatInfo, 0, len(formats))
	for _, f := range formats {
		res = append(res, formatInfo{
			Width:  f.Width,
			Height: f.Height,
			FPS:    f.FPS,
			Format: "MJPG",
		})
	}
	return res
}

func (s *Service) setControl(args json.RawMessage) (json.RawMessage, error) {
	var req struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, fmt.Errorf("bad set_control arguments: %w", err)
	}
	if !slices.Contains(camera.ControlNames(), req.Name) {
		return nil, fmt.Errorf("unknown control: %s", req.Name)
	}
	if err := s.mgr.UpdateConfig(map[string]interface{}{req.Name: req.Value}); err != nil {
		return nil, err
	}
	return json.RawMessage(`true`), nil
}

func (s *Service) setConfig(args json.RawMessage) (json.RawMessage, error) {
	var params map[string]interface{}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("bad set_config arguments: %w", err)
	}
	if err := s.mgr.UpdateConfig(params); err != nil {
		return nil, err
	}
	return marshal(s.mgr.GetConfigJSON())
}

// applyConfig pushes a validated config onto the device. It is installed
// as the manager's change callback and therefore runs on the loop
// goroutine, because commands are the only config writers after startup.
func (s *Service) applyConfig(cfg camera.Config) error {
	want := camera.Format{Width: cfg.Width, Height: cfg.Height, FPS: cfg.Framerate}
	if cur := s.dev.Format(); cur != want {
		if err := s.dev.SetFormat(want); err != nil {
			return fmt.Errorf("set format %s: %w", want, err)
		}
	}

	if q, ok := s.dev.(interface{ SetQuality(int) }); ok && cfg.Quality > 0 {
		q.SetQuality(cfg.Quality)
	}

	controls := map[string]float64{
		"brightness": cfg.Brightness,
		"contrast":   cfg.Contrast,
		"saturation": cfg.Saturation,
		"gain":       cfg.Gain,
		"exposure":   cfg.Exposure,
	}
	for name, value := range controls {
		if value == 0 {
			// Zero means leave the driver default alone.
			continue
		}
		if err := s.dev.SetControl(name, value); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}
