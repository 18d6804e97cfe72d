// Package bridge moves PCM audio between the robot's audio endpoint and a
// live session. The capture and playback loops run concurrently and
// independently; each retries its own transient I/O errors and only context
// cancellation stops them.
package bridge

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/teslashibe/reachy-companion/internal/log"
	"github.com/teslashibe/reachy-companion/pkg/audioio"
)

const (
	// retryPause is the backoff after a transient endpoint error.
	retryPause = 100 * time.Millisecond
	// idlePause is the wait when capture has no data yet.
	idlePause = 10 * time.Millisecond
)

// SendFunc forwards one PCM16 mono block toward the session. It must not
// block for long; the session buffers outbound audio.
type SendFunc func(pcm []byte)

// NextFunc returns the next inbound PCM16 block from the session. It should
// return io.EOF when the session is finished.
type NextFunc func(ctx context.Context) ([]byte, error)

// Bridge connects one audio endpoint to one session.
type Bridge struct {
	endpoint   audioio.Endpoint
	outputRate int // the service's playback rate, e.g. 24000
}

// New creates a bridge. outputRate is the sample rate of audio arriving
// from the service.
func New(endpoint audioio.Endpoint, outputRate int) *Bridge {
	return &Bridge{
		endpoint:   endpoint,
		outputRate: outputRate,
	}
}

// CaptureLoop pulls blocks from the endpoint, normalizes them to 16-bit
// mono, and forwards the bytes via send. Returns nil when ctx is cancelled.
func (b *Bridge) CaptureLoop(ctx context.Context, send SendFunc) error {
	log.Info("audio capture loop started")
	defer log.Info("audio capture loop stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, err := b.endpoint.CaptureSample(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			log.Error("audio capture error", "error", err)
			if !pause(ctx, retryPause) {
				return nil
			}
			continue
		}

		if len(chunk.Samples) == 0 {
			if !pause(ctx, idlePause) {
				return nil
			}
			continue
		}

		send(audioio.SamplesToBytes(chunk.Mono()))
	}
}

// PlaybackLoop awaits inbound chunks, resamples them to the endpoint's
// native rate when the rates differ, and plays them. Returns nil when ctx
// is cancelled or the session ends.
func (b *Bridge) PlaybackLoop(ctx context.Context, next NextFunc) error {
	log.Info("audio playback loop started")
	defer log.Info("audio playback loop stopped")

	deviceRate := b.endpoint.SampleRate()

	for {
		if ctx.Err() != nil {
			return nil
		}

		data, err := next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			log.Error("audio playback receive error", "error", err)
			if !pause(ctx, retryPause) {
				return nil
			}
			continue
		}

		samples := audioio.BytesToSamples(data)
		if b.outputRate != deviceRate {
			samples = audioio.Resample(samples, b.outputRate, deviceRate)
		}

		chunk := audioio.Chunk{Samples: samples, SampleRate: deviceRate, Channels: 1}
		if err := b.endpoint.PlaySample(ctx, chunk); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("audio playback error", "error", err)
			if !pause(ctx, retryPause) {
				return nil
			}
		}
	}
}

func pause(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
