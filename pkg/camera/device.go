package camera

// Control is one runtime-adjustable picture control with its current
// value in the normalized 0.0-1.0 range.
type Control struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DeviceInfo describes a probed capture device.
type DeviceInfo struct {
	Index  int `json:"index"`
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`
}

// Device is a frame source. Implementations are not safe for concurrent
// use; the capture loop owns the device and serializes access.
type Device interface {
	// Read grabs and encodes the next frame, returning JPEG bytes and
	// the frame's pixel size.
	Read() (data []byte, width, height int, err error)

	// Format returns the active capture format.
	Format() Format

	// SetFormat switches the capture format. Drivers snap to the
	// nearest supported mode; Format reports what was applied.
	SetFormat(f Format) error

	// Formats lists capture formats the device can be switched to.
	Formats() []Format

	// Controls returns the current picture control values.
	Controls() []Control

	// SetControl adjusts one picture control by name.
	SetControl(name string, value float64) error

	// Close releases the device.
	Close() error
}
