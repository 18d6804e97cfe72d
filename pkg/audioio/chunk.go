// Package audioio provides the audio endpoint abstraction and PCM helpers
// shared by the capture and playback paths.
//
// All wire audio is linear PCM, 16-bit signed little-endian, mono. Capture
// hardware may deliver multi-channel or float32 blocks; the helpers here
// normalize those to the wire format.
package audioio

// Chunk is one block of audio samples as delivered by a device.
type Chunk struct {
	// Samples contains interleaved PCM16 samples.
	Samples []int16

	// SampleRate is the sample rate of this chunk in Hz.
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int
}

// Bytes returns the chunk as raw PCM16 little-endian bytes.
func (c Chunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Duration returns the chunk duration in seconds.
func (c Chunk) Duration() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Mono returns the chunk's samples downmixed to one channel by averaging.
// Single-channel chunks are returned as-is.
func (c Chunk) Mono() []int16 {
	if c.Channels <= 1 {
		return c.Samples
	}
	frames := len(c.Samples) / c.Channels
	mono := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for ch := 0; ch < c.Channels; ch++ {
			sum += int32(c.Samples[i*c.Channels+ch])
		}
		mono[i] = int16(sum / int32(c.Channels))
	}
	return mono
}

// BytesToSamples converts raw PCM16 little-endian bytes to int16 samples.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to raw PCM16 little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// Float32ToSamples converts float32 samples in [-1, 1] to int16 by scaling
// to the 16-bit integer range. Out-of-range values are clamped.
func Float32ToSamples(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
