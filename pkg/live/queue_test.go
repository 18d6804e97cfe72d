package live

import (
	"context"
	"testing"
	"time"
)

func TestQueuePreservesOrder(t *testing.T) {
	q := newSendQueue()

	q.Push(Item{Kind: KindAudio, Data: []byte("a1")})
	q.Push(Item{Kind: KindImage, Data: []byte("i1")})
	q.Push(Item{Kind: KindAudio, Data: []byte("a2")})

	ctx := context.Background()

	want := []Item{
		{Kind: KindAudio, Data: []byte("a1")},
		{Kind: KindImage, Data: []byte("i1")},
		{Kind: KindAudio, Data: []byte("a2")},
	}
	for i, w := range want {
		got, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("Pop %d: queue closed unexpectedly", i)
		}
		if got.Kind != w.Kind || string(got.Data) != string(w.Data) {
			t.Errorf("Pop %d = %v %q, want %v %q", i, got.Kind, got.Data, w.Kind, w.Data)
		}
	}

	if q.Len() != 0 {
		t.Errorf("queue length after drain = %d, want 0", q.Len())
	}
}

func TestQueuePopWaitsForPush(t *testing.T) {
	q := newSendQueue()

	done := make(chan Item, 1)
	go func() {
		item, _ := q.Pop(context.Background())
		done <- item
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(Item{Kind: KindAudio, Data: []byte("late")})

	select {
	case item := <-done:
		if string(item.Data) != "late" {
			t.Errorf("got %q, want %q", item.Data, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake on Push")
	}
}

func TestQueuePopCancelled(t *testing.T) {
	q := newSendQueue()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Pop(ctx); ok {
		t.Error("Pop on cancelled context should return false")
	}
}
