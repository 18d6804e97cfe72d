package live

import (
	"context"
	"sync"
)

// ItemKind tags an outbound queue item.
type ItemKind int

const (
	// KindAudio is a block of PCM16 16kHz mono audio.
	KindAudio ItemKind = iota
	// KindImage is a JPEG frame.
	KindImage
)

// Item is one pending outbound payload.
type Item struct {
	Kind ItemKind
	Data []byte
}

// sendQueue is an unbounded FIFO of outbound items. Push never blocks;
// Pop waits for the next item or context cancellation. Single consumer.
type sendQueue struct {
	mu     sync.Mutex
	items  []Item
	signal chan struct{}
}

func newSendQueue() *sendQueue {
	return &sendQueue{
		signal: make(chan struct{}, 1),
	}
}

// Push appends an item in arrival order.
func (q *sendQueue) Push(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pop returns the next item, waiting until one is available. The second
// return value is false when the context is cancelled first.
func (q *sendQueue) Pop(ctx context.Context) (Item, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Item{}, false
		case <-q.signal:
		}
	}
}

// Len returns the number of pending items.
func (q *sendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
