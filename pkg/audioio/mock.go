package audioio

import (
	"context"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockEndpoint is an in-memory audio endpoint for tests and -simulate runs.
// Capture produces silence by default, or a sine wave when configured;
// playback records written chunks.
type MockEndpoint struct {
	sampleRate int
	blockSize  int
	interval   time.Duration

	mu     sync.Mutex
	closed bool
	played []Chunk

	// Sine generation; frequency 0 means silence.
	phase     float64
	frequency float64
	amplitude float64

	captured atomic.Int64
}

// MockOption configures a MockEndpoint.
type MockOption func(*MockEndpoint)

// WithSine makes capture produce a sine wave instead of silence.
func WithSine(frequency, amplitude float64) MockOption {
	return func(m *MockEndpoint) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithCaptureInterval sets the simulated blocking time per capture block.
// Default is zero so tests run fast.
func WithCaptureInterval(d time.Duration) MockOption {
	return func(m *MockEndpoint) {
		m.interval = d
	}
}

// NewMockEndpoint creates a mock endpoint at the given rate producing
// blockSize-sample mono blocks.
func NewMockEndpoint(sampleRate, blockSize int, opts ...MockOption) *MockEndpoint {
	m := &MockEndpoint{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		amplitude:  0.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CaptureSample returns the next synthetic block.
func (m *MockEndpoint) CaptureSample(ctx context.Context) (Chunk, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Chunk{}, io.EOF
	}

	samples := make([]int16, m.blockSize)
	if m.frequency > 0 {
		for i := range samples {
			v := m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.sampleRate))
			samples[i] = int16(v * 32767)
			m.phase++
			if m.phase >= float64(m.sampleRate) {
				m.phase = 0
			}
		}
	}
	interval := m.interval
	m.mu.Unlock()

	if interval > 0 {
		select {
		case <-ctx.Done():
			return Chunk{}, ctx.Err()
		case <-time.After(interval):
		}
	}

	m.captured.Add(1)
	return Chunk{Samples: samples, SampleRate: m.sampleRate, Channels: 1}, nil
}

// PlaySample records the chunk.
func (m *MockEndpoint) PlaySample(ctx context.Context, chunk Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.played = append(m.played, chunk)
	return nil
}

// SampleRate returns the configured rate.
func (m *MockEndpoint) SampleRate() int {
	return m.sampleRate
}

// Close marks the endpoint closed; further calls fail.
func (m *MockEndpoint) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Played returns a copy of all chunks written so far.
func (m *MockEndpoint) Played() []Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Chunk, len(m.played))
	copy(out, m.played)
	return out
}

// CaptureCount returns the number of blocks captured so far.
func (m *MockEndpoint) CaptureCount() int64 {
	return m.captured.Load()
}

// Ensure MockEndpoint implements Endpoint.
var _ Endpoint = (*MockEndpoint)(nil)
