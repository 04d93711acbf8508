package detect

// MockDetector returns canned detections, for tests and dry runs.
type MockDetector struct {
	Detections []Detection
	Err        error
	Calls      int
}

// Detect returns the canned result.
func (m *MockDetector) Detect(jpeg []byte) ([]Detection, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Detections, nil
}

// Close does nothing.
func (m *MockDetector) Close() error {
	return nil
}
