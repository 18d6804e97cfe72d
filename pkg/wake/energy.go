package wake

import (
	"math"
	"time"
)

// EnergyDetector is the builtin backend: it triggers on a sustained burst
// of audio energy rather than a trained wake word. Useful on hardware
// without an inference runtime and in -simulate mode.
type EnergyDetector struct {
	threshold  float64 // activation score in [0, 1]
	refractory time.Duration

	lastTrigger time.Time
	now         func() time.Time
}

// NewEnergyDetector creates the energy backend from config.
func NewEnergyDetector(cfg Config) *EnergyDetector {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 0.7
	}
	return &EnergyDetector{
		threshold:  threshold,
		refractory: cfg.Refractory(),
		now:        time.Now,
	}
}

// LoadModel is a no-op; the energy backend has no model file.
func (d *EnergyDetector) LoadModel(path string) error {
	return nil
}

// ProcessAudio scores the block by normalized RMS energy.
func (d *EnergyDetector) ProcessAudio(samples []int16) (Detection, error) {
	if len(samples) == 0 {
		return Detection{}, nil
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	score := rms / 32767

	det := Detection{Confidence: score}
	if score < d.threshold {
		return det, nil
	}

	now := d.now()
	if !d.lastTrigger.IsZero() && now.Sub(d.lastTrigger) < d.refractory {
		return det, nil
	}

	d.lastTrigger = now
	det.Detected = true
	return det, nil
}

// Reset clears the refractory state.
func (d *EnergyDetector) Reset() {
	d.lastTrigger = time.Time{}
}

var _ Detector = (*EnergyDetector)(nil)

func init() {
	Register("energy", func(cfg Config) (Detector, error) {
		return NewEnergyDetector(cfg), nil
	})
}
