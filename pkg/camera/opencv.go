package camera

import (
	"bytes"
	"fmt"

	"gocv.io/x/gocv"
)

// OpenCVDevice captures frames from a local camera through the OpenCV
// videoio backend (V4L2 on Linux).
type OpenCVDevice struct {
	cap     *gocv.VideoCapture
	mat     gocv.Mat
	index   int
	quality int
}

var controlProps = map[string]gocv.VideoCaptureProperties{
	"brightness": gocv.VideoCaptureBrightness,
	"contrast":   gocv.VideoCaptureContrast,
	"saturation": gocv.VideoCaptureSaturation,
	"gain":       gocv.VideoCaptureGain,
	"exposure":   gocv.VideoCaptureExposure,
}

// OpenDevice opens the camera at index and applies the config.
func OpenDevice(index int, cfg Config) (*OpenCVDevice, error) {
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("camera: open device %d: %w", index, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera: device %d is not available", index)
	}

	d := &OpenCVDevice{
		cap:     cap,
		mat:     gocv.NewMat(),
		index:   index,
		quality: cfg.Quality,
	}
	if d.quality <= 0 {
		d.quality = 85
	}

	// MJPG keeps USB bandwidth manageable at higher resolutions.
	cap.Set(gocv.VideoCaptureFOURCC, cap.ToCodec("MJPG"))

	if cfg.Width > 0 && cfg.Height > 0 {
		if err := d.SetFormat(Format{Width: cfg.Width, Height: cfg.Height}); err != nil {
			d.Close()
			return nil, err
		}
	}
	for _, c := range []Control{
		{Name: "brightness", Value: cfg.Brightness},
		{Name: "contrast", Value: cfg.Contrast},
		{Name: "saturation", Value: cfg.Saturation},
		{Name: "gain", Value: cfg.Gain},
		{Name: "exposure", Value: cfg.Exposure},
	} {
		if c.Value == 0 {
			continue // leave the driver default
		}
		if err := d.SetControl(c.Name, c.Value); err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

// SetQuality changes the JPEG encode quality for subsequent frames.
func (d *OpenCVDevice) SetQuality(q int) {
	if q > 0 && q <= 100 {
		d.quality = q
	}
}

// Read grabs the next frame and encodes it as JPEG.
func (d *OpenCVDevice) Read() ([]byte, int, int, error) {
	if ok := d.cap.Read(&d.mat); !ok {
		return nil, 0, 0, fmt.Errorf("camera: device %d: read failed", d.index)
	}
	if d.mat.Empty() {
		return nil, 0, 0, fmt.Errorf("camera: device %d: empty frame", d.index)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, d.mat,
		[]int{gocv.IMWriteJpegQuality, d.quality})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	// The buffer memory is released on Close, copy it out.
	data := bytes.Clone(buf.GetBytes())
	return data, d.mat.Cols(), d.mat.Rows(), nil
}

// Format returns the capture format the driver is actually using.
func (d *OpenCVDevice) Format() Format {
	return Format{
		Width:  int(d.cap.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(d.cap.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    int(d.cap.Get(gocv.VideoCaptureFPS)),
	}
}

// SetFormat requests a capture format. Zero fields keep the current
// value; drivers snap to the nearest supported mode, so callers should
// read Format back for the result.
func (d *OpenCVDevice) SetFormat(f Format) error {
	if f.Width > 0 {
		d.cap.Set(gocv.VideoCaptureFrameWidth, float64(f.Width))
	}
	if f.Height > 0 {
		d.cap.Set(gocv.VideoCaptureFrameHeight, float64(f.Height))
	}
	if f.FPS > 0 {
		d.cap.Set(gocv.VideoCaptureFPS, float64(f.FPS))
	}
	return nil
}

// Formats lists selectable formats. The videoio backend cannot
// enumerate driver modes, so this reports the common webcam set plus
// whatever the device currently runs.
func (d *OpenCVDevice) Formats() []Format {
	current := d.Format()
	formats := CommonFormats()
	for _, f := range formats {
		if f.Width == current.Width && f.Height == current.Height {
			return formats
		}
	}
	return append([]Format{current}, formats...)
}

// Controls reads the current picture control values from the driver.
func (d *OpenCVDevice) Controls() []Control {
	controls := make([]Control, 0, len(controlProps))
	for _, name := range ControlNames() {
		controls = append(controls, Control{
			Name:  name,
			Value: d.cap.Get(controlProps[name]),
		})
	}
	return controls
}

// SetControl adjusts one picture control.
func (d *OpenCVDevice) SetControl(name string, value float64) error {
	prop, ok := controlProps[name]
	if !ok {
		return fmt.Errorf("camera: unknown control %q", name)
	}
	if name == "exposure" {
		// V4L2 auto-exposure: 1 selects manual mode, 3 auto.
		d.cap.Set(gocv.VideoCaptureAutoExposure, 1)
	}
	d.cap.Set(prop, value)
	return nil
}

// Close releases the camera.
func (d *OpenCVDevice) Close() error {
	d.mat.Close()
	return d.cap.Close()
}

// List probes device indices 0 through maxDevices-1 and reports the
// cameras that open successfully.
func List(maxDevices int) []DeviceInfo {
	var infos []DeviceInfo
	for i := 0; i < maxDevices; i++ {
		cap, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if cap.IsOpened() {
			infos = append(infos, DeviceInfo{
				Index:  i,
				Width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
				Height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
				FPS:    int(cap.Get(gocv.VideoCaptureFPS)),
			})
		}
		cap.Close()
	}
	return infos
}
