package wake

import "sync"

// MockDetector is a test backend that triggers on demand.
type MockDetector struct {
	mu        sync.Mutex
	loaded    bool
	trigger   bool
	resets    int
	processed int
}

// NewMockDetector creates a mock backend.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// Trigger makes the next ProcessAudio call report a detection.
func (m *MockDetector) Trigger() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigger = true
}

// LoadModel marks the mock loaded.
func (m *MockDetector) LoadModel(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	return nil
}

// ProcessAudio reports a detection iff Trigger was called since the last
// ProcessAudio.
func (m *MockDetector) ProcessAudio(samples []int16) (Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
	if m.trigger {
		m.trigger = false
		return Detection{Detected: true, Confidence: 1}, nil
	}
	return Detection{}, nil
}

// Reset counts resets for assertions.
func (m *MockDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = m.resets + 1
	m.trigger = false
}

// Loaded reports whether LoadModel was called.
func (m *MockDetector) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

var _ Detector = (*MockDetector)(nil)

func init() {
	Register("mock", func(cfg Config) (Detector, error) {
		return NewMockDetector(), nil
	})
}
