package wake

import (
	"errors"
	"testing"
	"time"
)

func TestFactorySelectsBackend(t *testing.T) {
	d, err := New(Config{Backend: "energy", Threshold: 0.5})
	if err != nil {
		t.Fatalf("New(energy): %v", err)
	}
	if _, ok := d.(*EnergyDetector); !ok {
		t.Errorf("New(energy) = %T, want *EnergyDetector", d)
	}

	d, err = New(Config{Backend: "mock"})
	if err != nil {
		t.Fatalf("New(mock): %v", err)
	}
	mock, ok := d.(*MockDetector)
	if !ok {
		t.Fatalf("New(mock) = %T, want *MockDetector", d)
	}
	if !mock.Loaded() {
		t.Error("factory did not call LoadModel")
	}
}

func TestFactoryUnknownBackend(t *testing.T) {
	if _, err := New(Config{Backend: "nope"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("New(nope) = %v, want ErrUnknownBackend", err)
	}
}

func TestEnergyDetection(t *testing.T) {
	d := NewEnergyDetector(Config{Threshold: 0.1})

	quiet := make([]int16, 480)
	loud := make([]int16, 480)
	for i := range loud {
		loud[i] = 16000 // score ~0.49
	}

	det, err := d.ProcessAudio(quiet)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if det.Detected {
		t.Error("silence detected as wake word")
	}

	det, _ = d.ProcessAudio(loud)
	if !det.Detected {
		t.Errorf("loud block not detected (confidence %.2f)", det.Confidence)
	}
}

func TestEnergyRefractory(t *testing.T) {
	d := NewEnergyDetector(Config{Threshold: 0.1, RefractorySec: 3})

	base := time.Now()
	d.now = func() time.Time { return base }

	loud := make([]int16, 480)
	for i := range loud {
		loud[i] = 16000
	}

	if det, _ := d.ProcessAudio(loud); !det.Detected {
		t.Fatal("first loud block not detected")
	}

	base = base.Add(time.Second)
	if det, _ := d.ProcessAudio(loud); det.Detected {
		t.Error("re-trigger inside refractory window")
	}

	base = base.Add(3 * time.Second)
	if det, _ := d.ProcessAudio(loud); !det.Detected {
		t.Error("no trigger after refractory window passed")
	}

	// Reset clears the window entirely.
	d.Reset()
	if det, _ := d.ProcessAudio(loud); !det.Detected {
		t.Error("no trigger after Reset")
	}
}
