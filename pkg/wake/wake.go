// Package wake provides pluggable wake-word detection backends.
//
// Backends satisfy a small capability interface and register themselves by
// name; the concrete implementation is selected from configuration. ML
// runtimes (Edge Impulse, openWakeWord ports) live behind the same
// interface out of tree.
package wake

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownBackend is returned when no factory matches the config.
var ErrUnknownBackend = errors.New("wake: unknown backend")

// Detection is the outcome of processing one audio block.
type Detection struct {
	// Detected is true when the wake word was heard in this block.
	Detected bool

	// Confidence is the backend's score in [0, 1].
	Confidence float64
}

// Detector is the capability interface all wake backends implement.
type Detector interface {
	// LoadModel prepares the backend. path may be empty for builtin models.
	LoadModel(path string) error

	// ProcessAudio scores one PCM16 mono block.
	ProcessAudio(samples []int16) (Detection, error)

	// Reset clears internal state (e.g. after a session ends).
	Reset()
}

// Config selects and tunes a backend.
type Config struct {
	// Backend is the registered backend name (e.g. "energy", "mock").
	Backend string `yaml:"backend" validate:"required"`

	// ModelPath points at a custom model file, if the backend takes one.
	ModelPath string `yaml:"model_path"`

	// Threshold is the activation score in [0, 1].
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`

	// RefractorySec suppresses re-triggers for this many seconds after a
	// detection.
	RefractorySec float64 `yaml:"refractory_sec" validate:"gte=0"`
}

// Refractory returns the re-trigger suppression window as a duration.
func (c Config) Refractory() time.Duration {
	return time.Duration(c.RefractorySec * float64(time.Second))
}

// Factory creates a Detector from configuration.
type Factory func(cfg Config) (Detector, error)

var registry = map[string]Factory{}

// Register adds a backend factory. Called from init in backend files.
func Register(name string, f Factory) {
	registry[name] = f
}

// New creates the backend selected by cfg.Backend and loads its model.
func New(cfg Config) (Detector, error) {
	f, ok := registry[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	d, err := f(cfg)
	if err != nil {
		return nil, err
	}
	if err := d.LoadModel(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("wake: load model: %w", err)
	}
	return d, nil
}

// Backends returns the registered backend names.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
