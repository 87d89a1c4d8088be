package store

import (
	"context"
	"sync/atomic"

	"github.com/yanun0323/logs"
)

// RowSink applies forwarded row operations to the durable store.
type RowSink[K comparable, R any] interface {
	UpsertRow(ctx context.Context, row R) error
	DeleteRow(ctx context.Context, key K) error
}

type rowOp[K comparable, R any] struct {
	del bool
	key K
	row R
}

// RowForwarder decouples hot-path table mutations from durable writes.
// Forward calls never block: operations land on a bounded queue consumed
// by a single goroutine, which preserves per-row causal order. A full
// queue drops the operation and counts it; the in-memory table stays
// authoritative.
type RowForwarder[K comparable, R any] struct {
	name   string
	sink   RowSink[K, R]
	ch     chan rowOp[K, R]
	closed uint32
	drops  uint64
}

// NewRowForwarder creates a forwarder with the given queue capacity.
func NewRowForwarder[K comparable, R any](name string, sink RowSink[K, R], capacity int) *RowForwarder[K, R] {
	if capacity <= 0 {
		capacity = 1024
	}
	return &RowForwarder[K, R]{
		name: name,
		sink: sink,
		ch:   make(chan rowOp[K, R], capacity),
	}
}

// ForwardUpsert implements table.Forwarder.
func (f *RowForwarder[K, R]) ForwardUpsert(row R) {
	f.push(rowOp[K, R]{row: row})
}

// ForwardDelete implements table.Forwarder.
func (f *RowForwarder[K, R]) ForwardDelete(key K) {
	f.push(rowOp[K, R]{del: true, key: key})
}

func (f *RowForwarder[K, R]) push(op rowOp[K, R]) {
	if atomic.LoadUint32(&f.closed) != 0 {
		atomic.AddUint64(&f.drops, 1)
		return
	}
	select {
	case f.ch <- op:
	default:
		if atomic.AddUint64(&f.drops, 1)%1000 == 1 {
			logs.Warnf("forwarder %s queue full, dropping row ops (total drops %d)",
				f.name, atomic.LoadUint64(&f.drops))
		}
	}
}

// Drops returns the number of dropped row operations.
func (f *RowForwarder[K, R]) Drops() uint64 {
	return atomic.LoadUint64(&f.drops)
}

// Close stops accepting new operations. Buffered operations are still
// flushed by Run.
func (f *RowForwarder[K, R]) Close() {
	if atomic.CompareAndSwapUint32(&f.closed, 0, 1) {
		close(f.ch)
	}
}

// Run applies queued operations until the context is done or the
// forwarder is closed and drained.
func (f *RowForwarder[K, R]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op, ok := <-f.ch:
			if !ok {
				return
			}
			f.apply(ctx, op)
		}
	}
}

func (f *RowForwarder[K, R]) apply(ctx context.Context, op rowOp[K, R]) {
	var err error
	if op.del {
		err = f.sink.DeleteRow(ctx, op.key)
	} else {
		err = f.sink.UpsertRow(ctx, op.row)
	}
	if err != nil {
		logs.Errorf("forwarder %s apply row op, err: %+v", f.name, err)
	}
}
