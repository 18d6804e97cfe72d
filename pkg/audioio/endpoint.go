package audioio

import (
	"context"
	"io"
)

// Endpoint is the robot's audio hardware as seen by the bridge: a blocking
// microphone read and a blocking speaker write. Capture and playback are
// independent streams at the hardware level, so the two sides may be used
// from separate goroutines concurrently.
type Endpoint interface {
	// CaptureSample blocks until the next microphone block is available.
	// A nil-sample chunk with nil error means no data yet; callers should
	// pause briefly and retry. Returns io.EOF when the endpoint is closed.
	CaptureSample(ctx context.Context) (Chunk, error)

	// PlaySample blocks until the chunk has been handed to the speaker.
	PlaySample(ctx context.Context, chunk Chunk) error

	// SampleRate returns the device's native sample rate in Hz.
	SampleRate() int

	// Close releases the device.
	io.Closer
}
