package live

import "time"

// Reconnect policy: transient failures back off exponentially so a flapping
// network does not hammer the endpoint; a server-scheduled go-away is not a
// failure and reconnects with no delay at all.
const (
	backoffFloor = 1 * time.Second
	backoffCap   = 30 * time.Second

	// maxConnectAttempts bounds consecutive failed connections before Run
	// gives up. A successful connection resets the count.
	maxConnectAttempts = 10
)

// backoff produces the capped exponential delay sequence 1, 2, 4, 8, 16,
// 30, 30, ... for consecutive transient failures.
type backoff struct {
	floor time.Duration
	cap   time.Duration
	next  time.Duration
}

func newBackoff(floor, cap time.Duration) *backoff {
	return &backoff{floor: floor, cap: cap, next: floor}
}

// Next returns the current delay and advances the sequence.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.cap {
		b.next = b.cap
	}
	return d
}

// Reset returns the sequence to its floor. Called after every successful
// connection.
func (b *backoff) Reset() {
	b.next = b.floor
}
