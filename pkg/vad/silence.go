// Package vad provides RMS-based voice activity detection.
package vad

import (
	"math"
	"time"
)

// SilenceDetector decides when the user has been silent long enough to end
// the conversation. RMS energy is measured on the 16-bit sample scale, so
// int16 and float32 blocks are comparable against the same threshold.
//
// Not safe for concurrent use; each session gets its own detector.
type SilenceDetector struct {
	timeout      time.Duration
	rmsThreshold float64

	lastSpeech time.Time
}

// NewSilenceDetector creates a detector that reports silence after timeout
// of sustained RMS below rmsThreshold (16-bit scale, e.g. 200).
func NewSilenceDetector(timeout time.Duration, rmsThreshold float64) *SilenceDetector {
	return &SilenceDetector{
		timeout:      timeout,
		rmsThreshold: rmsThreshold,
	}
}

// Process examines one int16 audio block and returns true if silence has
// lasted at least the configured timeout. A block at or above the threshold
// records now as the last speech time. On the first call the last speech
// time initializes to now, so silence is measured from detector creation.
func (d *SilenceDetector) Process(samples []int16, now time.Time) bool {
	return d.observe(rmsInt16(samples), now)
}

// ProcessFloat32 is Process for float32 samples in [-1, 1], scaled to the
// 16-bit range before comparison.
func (d *SilenceDetector) ProcessFloat32(samples []float32, now time.Time) bool {
	return d.observe(rmsFloat32(samples)*32767, now)
}

// Reset clears the last speech time; the next Process call re-initializes it.
func (d *SilenceDetector) Reset() {
	d.lastSpeech = time.Time{}
}

func (d *SilenceDetector) observe(rms float64, now time.Time) bool {
	if d.lastSpeech.IsZero() {
		d.lastSpeech = now
	}

	if rms >= d.rmsThreshold {
		d.lastSpeech = now
		return false
	}

	return now.Sub(d.lastSpeech) >= d.timeout
}

func rmsInt16(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func rmsFloat32(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
