package table

import (
	"sync"
	"time"

	"main/pkg/exception"
)

// Row is the contract stored rows must satisfy.
type Row[K comparable] interface {
	// Key returns the immutable primary key.
	Key() K
	// Timestamp returns the row time in unix nanoseconds, used by retention.
	Timestamp() int64
}

// Forwarder receives per-row mutations of a persistent table in causal
// order. Implementations must not block; a slow sink drops and logs.
type Forwarder[K comparable, R Row[K]] interface {
	ForwardUpsert(row R)
	ForwardDelete(key K)
}

// Retention bounds a table by age and row count. Zero values disable the
// corresponding rule.
type Retention struct {
	MaxAge  time.Duration
	MaxRows int
}

// Config declares a table.
type Config struct {
	Name      string
	Retention Retention
}

type ageEntry[K comparable] struct {
	key K
	ts  int64
}

// Table is a volatile keyed table with optional secondary indices.
// All operations are safe for concurrent use.
type Table[K comparable, R Row[K]] struct {
	name string
	ret  Retention

	mu      sync.RWMutex
	rows    map[K]R
	indices map[string]*index[K, R]
	ageq    []ageEntry[K]
	fwd     Forwarder[K, R]
}

// New creates a volatile table.
func New[K comparable, R Row[K]](cfg Config) *Table[K, R] {
	return &Table[K, R]{
		name:    cfg.Name,
		ret:     cfg.Retention,
		rows:    make(map[K]R),
		indices: make(map[string]*index[K, R]),
	}
}

// Persistent is a table whose mutations are forwarded to a durable store.
// It shares the volatile table contract; only the backing differs.
type Persistent[K comparable, R Row[K]] struct {
	*Table[K, R]
}

// NewPersistent creates a table backed by a store forwarder.
func NewPersistent[K comparable, R Row[K]](cfg Config, fwd Forwarder[K, R]) (*Persistent[K, R], error) {
	if fwd == nil {
		return nil, exception.ErrNilInstance
	}
	t := New[K, R](cfg)
	t.fwd = fwd
	return &Persistent[K, R]{Table: t}, nil
}

// WithIndex declares a named secondary index. Must be called before the
// table is shared between goroutines.
func (t *Table[K, R]) WithIndex(name string, extract func(R) string) *Table[K, R] {
	t.indices[name] = newIndex[K](extract)
	return t
}

// Name returns the table name.
func (t *Table[K, R]) Name() string {
	return t.name
}

// Len returns the current row count.
func (t *Table[K, R]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Insert adds a new row. Fails with exception.ErrDuplicateKey when the
// primary key already exists.
func (t *Table[K, R]) Insert(row R) error {
	key := row.Key()
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[key]; ok {
		return exception.ErrDuplicateKey
	}
	t.putLocked(key, row)
	return nil
}

// Upsert inserts the row or fully replaces the non-key fields of the
// existing one. Index entries follow the new row.
func (t *Table[K, R]) Upsert(row R) {
	key := row.Key()
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.rows[key]; ok {
		t.removeFromIndicesLocked(key, old)
	}
	t.putLocked(key, row)
}

// UpdateField applies mutate to a copy of the row and commits the result
// atomically. Fails with exception.ErrNotFound when the key is absent.
// The mutation must not change the primary key.
func (t *Table[K, R]) UpdateField(key K, mutate func(*R)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, ok := t.rows[key]
	if !ok {
		return exception.ErrNotFound
	}
	next := old
	mutate(&next)
	t.removeFromIndicesLocked(key, old)
	t.putLocked(key, next)
	return nil
}

// Get returns a copy of the row for the key.
func (t *Table[K, R]) Get(key K) (R, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[key]
	return row, ok
}

// Scan returns copies of all rows matching the filter. A nil filter
// matches every row.
func (t *Table[K, R]) Scan(filter func(R) bool) []R {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]R, 0, len(t.rows))
	for _, row := range t.rows {
		if filter == nil || filter(row) {
			out = append(out, row)
		}
	}
	return out
}

// ScanIndex returns copies of the rows whose index term matches.
func (t *Table[K, R]) ScanIndex(name, term string) ([]R, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.indices[name]
	if !ok {
		return nil, exception.ErrUnknownIndex
	}
	keys := idx.lookup(term)
	out := make([]R, 0, len(keys))
	for key := range keys {
		if row, ok := t.rows[key]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Delete removes the row and its index entries. Removing an absent key is
// a no-op: eviction and explicit deletion may race.
func (t *Table[K, R]) Delete(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deleteLocked(key)
}

// SweepOnce removes rows past the retention window, acquiring the write
// lock once per removed row. Implements Sweepable.
func (t *Table[K, R]) SweepOnce(now time.Time) (int, error) {
	removed := 0
	var cutoff int64
	if t.ret.MaxAge > 0 {
		cutoff = now.Add(-t.ret.MaxAge).UnixNano()
	}
	for {
		t.mu.Lock()
		if len(t.ageq) == 0 {
			t.mu.Unlock()
			return removed, nil
		}
		head := t.ageq[0]
		row, live := t.rows[head.key]
		if !live || row.Timestamp() != head.ts {
			// entry superseded by a newer write for the same key
			t.ageq = t.ageq[1:]
			t.mu.Unlock()
			continue
		}
		expired := cutoff > 0 && head.ts < cutoff
		over := t.ret.MaxRows > 0 && len(t.rows) > t.ret.MaxRows
		if !expired && !over {
			t.mu.Unlock()
			return removed, nil
		}
		t.ageq = t.ageq[1:]
		if t.deleteLocked(head.key) {
			removed++
		}
		t.mu.Unlock()
	}
}

func (t *Table[K, R]) putLocked(key K, row R) {
	t.rows[key] = row
	for _, idx := range t.indices {
		idx.add(key, row)
	}
	if t.ret.MaxAge > 0 || t.ret.MaxRows > 0 {
		t.ageq = append(t.ageq, ageEntry[K]{key: key, ts: row.Timestamp()})
		if len(t.ageq) > 64 && len(t.ageq) > 4*len(t.rows) {
			t.compactAgeLocked()
		}
	}
	if t.fwd != nil {
		t.fwd.ForwardUpsert(row)
	}
}

// compactAgeLocked drops queue entries superseded by a newer write, keeping
// the queue proportional to the live row count.
func (t *Table[K, R]) compactAgeLocked() {
	kept := t.ageq[:0]
	for _, e := range t.ageq {
		if row, ok := t.rows[e.key]; ok && row.Timestamp() == e.ts {
			kept = append(kept, e)
		}
	}
	t.ageq = kept
}

func (t *Table[K, R]) deleteLocked(key K) bool {
	row, ok := t.rows[key]
	if !ok {
		return false
	}
	delete(t.rows, key)
	t.removeFromIndicesLocked(key, row)
	if t.fwd != nil {
		t.fwd.ForwardDelete(key)
	}
	return true
}

func (t *Table[K, R]) removeFromIndicesLocked(key K, row R) {
	for _, idx := range t.indices {
		idx.remove(key, row)
	}
}
