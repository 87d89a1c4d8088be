package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memOp struct {
	del bool
	key int
	val string
}

type memSink struct {
	mu  sync.Mutex
	ops []memOp
}

func (s *memSink) UpsertRow(_ context.Context, row string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, memOp{val: row})
	return nil
}

func (s *memSink) DeleteRow(_ context.Context, key int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, memOp{del: true, key: key})
	return nil
}

func (s *memSink) snapshot() []memOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]memOp(nil), s.ops...)
}

func TestForwarderPreservesOrder(t *testing.T) {
	sink := &memSink{}
	fwd := NewRowForwarder[int, string]("test", sink, 16)

	fwd.ForwardUpsert("a")
	fwd.ForwardUpsert("b")
	fwd.ForwardDelete(1)
	fwd.ForwardUpsert("c")
	fwd.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fwd.Run(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not drain after close")
	}

	ops := sink.snapshot()
	if len(ops) != 4 {
		t.Fatalf("expected 4 ops, got %d", len(ops))
	}
	if ops[0].val != "a" || ops[1].val != "b" || !ops[2].del || ops[3].val != "c" {
		t.Fatalf("ops out of order: %+v", ops)
	}
}

func TestForwarderDropsWhenFull(t *testing.T) {
	sink := &memSink{}
	fwd := NewRowForwarder[int, string]("test", sink, 1)

	fwd.ForwardUpsert("a")
	fwd.ForwardUpsert("b") // queue full, dropped
	if got := fwd.Drops(); got != 1 {
		t.Fatalf("expected 1 drop, got %d", got)
	}

	fwd.Close()
	fwd.ForwardUpsert("c") // closed, dropped
	if got := fwd.Drops(); got != 2 {
		t.Fatalf("expected 2 drops, got %d", got)
	}
}
