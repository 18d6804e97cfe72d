package audioio

import (
	"math"
	"testing"
)

func TestResampleDownrate(t *testing.T) {
	// 480 samples at 48kHz -> 16kHz should give ~160 samples.
	in := make([]int16, 480)
	for i := range in {
		in[i] = int16(1000 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}

	out := Resample(in, 48000, 16000)

	want := 160
	tolerance := want / 10
	if len(out) < want-tolerance || len(out) > want+tolerance {
		t.Errorf("resampled length = %d, want %d +/- %d", len(out), want, tolerance)
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []int16{1, 2, 3, 4}
	out := Resample(in, 24000, 24000)
	if len(out) != len(in) {
		t.Fatalf("length changed: %d != %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestResampleEmpty(t *testing.T) {
	if out := Resample(nil, 24000, 16000); len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestResampleBytesRoundsSamples(t *testing.T) {
	data := SamplesToBytes(make([]int16, 240)) // 10ms at 24kHz
	out := ResampleBytes(data, 24000, 16000)
	if len(out)%2 != 0 {
		t.Errorf("output length %d is not sample-aligned", len(out))
	}
	if got := len(out) / 2; got != 160 {
		t.Errorf("24k->16k of 240 samples = %d, want 160", got)
	}
}

func TestBytesSamplesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 12345}
	out := BytesToSamples(SamplesToBytes(in))
	if len(out) != len(in) {
		t.Fatalf("length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestMonoDownmix(t *testing.T) {
	c := Chunk{
		Samples:    []int16{100, 200, -100, 100, 0, 0},
		SampleRate: 16000,
		Channels:   2,
	}
	mono := c.Mono()
	want := []int16{150, 0, 0}
	if len(mono) != len(want) {
		t.Fatalf("mono length = %d, want %d", len(mono), len(want))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("mono[%d] = %d, want %d", i, mono[i], want[i])
		}
	}
}

func TestFloat32ToSamplesClamps(t *testing.T) {
	out := Float32ToSamples([]float32{0, 0.5, -0.5, 2.0, -2.0})
	if out[0] != 0 {
		t.Errorf("zero maps to %d", out[0])
	}
	if out[1] != 16383 {
		t.Errorf("0.5 maps to %d, want 16383", out[1])
	}
	if out[3] != 32767 {
		t.Errorf("overrange maps to %d, want 32767", out[3])
	}
	if out[4] != -32768 {
		t.Errorf("underrange maps to %d, want -32768", out[4])
	}
}
