package bus

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTryPublishFull(t *testing.T) {
	q := NewQueue[int]("test", 2)
	if err := q.TryPublish(1); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.TryPublish(2); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.TryPublish(3); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if got := q.Drops(); got != 1 {
		t.Fatalf("expected 1 drop, got %d", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	q := NewQueue[int]("test", 2)
	q.Close()
	q.Close() // idempotent
	if err := q.TryPublish(1); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestConcurrentPublishAndClose(t *testing.T) {
	for iter := 0; iter < 200; iter++ {
		q := NewQueue[int]("test", 1)
		start := make(chan struct{})
		done := make(chan struct{})

		go func() {
			defer close(done)
			<-start
			for i := 0; i < 50; i++ {
				if err := q.TryPublish(i); errors.Is(err, ErrQueueClosed) {
					return
				}
			}
		}()

		close(start)
		q.Close()
		<-done

		if err := q.TryPublish(99); !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed after close, got %v", err)
		}
	}
}

func TestRunDrainsBufferedAfterClose(t *testing.T) {
	q := NewQueue[int]("test", 4)
	for i := 1; i <= 3; i++ {
		if err := q.TryPublish(i); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	q.Close()

	var got []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		q.Run(context.Background(), func(v int) {
			got = append(got, v)
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after close")
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected drained events: %v", got)
	}
}
