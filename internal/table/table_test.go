package table

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"main/pkg/exception"
)

type tickKey struct {
	Symbol uint32
	Bucket int64
}

type tickRow struct {
	Symbol uint32
	Bucket int64
	Value  int64
	Note   string
	Ts     int64
}

func (r tickRow) Key() tickKey {
	return tickKey{Symbol: r.Symbol, Bucket: r.Bucket}
}

func (r tickRow) Timestamp() int64 {
	return r.Ts
}

func symbolTerm(r tickRow) string {
	return fmt.Sprintf("%d", r.Symbol)
}

func newTickTable(ret Retention) *Table[tickKey, tickRow] {
	return New[tickKey, tickRow](Config{Name: "ticks", Retention: ret}).
		WithIndex("symbol", symbolTerm)
}

func TestInsertGet(t *testing.T) {
	tbl := newTickTable(Retention{})
	row := tickRow{Symbol: 1, Bucket: 10, Value: 42, Note: "first", Ts: 100}

	if err := tbl.Insert(row); err != nil {
		t.Fatalf("insert failed: %+v", err)
	}
	got, ok := tbl.Get(row.Key())
	if !ok {
		t.Fatal("row not found after insert")
	}
	if got != row {
		t.Fatalf("row mismatch: want %+v, got %+v", row, got)
	}

	err := tbl.Insert(tickRow{Symbol: 1, Bucket: 10, Value: 99, Ts: 101})
	if !errors.Is(err, exception.ErrDuplicateKey) {
		t.Fatalf("want ErrDuplicateKey, got %+v", err)
	}
}

func TestUpsertReplacesRow(t *testing.T) {
	tbl := newTickTable(Retention{})
	tbl.Upsert(tickRow{Symbol: 1, Bucket: 10, Value: 1, Ts: 100})
	tbl.Upsert(tickRow{Symbol: 1, Bucket: 10, Value: 2, Ts: 200})

	got, ok := tbl.Get(tickKey{Symbol: 1, Bucket: 10})
	if !ok {
		t.Fatal("row not found after upsert")
	}
	if got.Value != 2 || got.Ts != 200 {
		t.Fatalf("row not replaced: %+v", got)
	}
	if tbl.Len() != 1 {
		t.Fatalf("want 1 row, got %d", tbl.Len())
	}
}

func TestUpdateFieldIsolation(t *testing.T) {
	tbl := newTickTable(Retention{})
	row := tickRow{Symbol: 1, Bucket: 10, Value: 1, Note: "keep me", Ts: 100}
	if err := tbl.Insert(row); err != nil {
		t.Fatalf("insert failed: %+v", err)
	}

	err := tbl.UpdateField(row.Key(), func(r *tickRow) {
		r.Value = 7
	})
	if err != nil {
		t.Fatalf("update failed: %+v", err)
	}

	got, _ := tbl.Get(row.Key())
	if got.Value != 7 {
		t.Fatalf("field not updated: %+v", got)
	}
	if got.Note != "keep me" || got.Ts != 100 {
		t.Fatalf("untouched fields changed: %+v", got)
	}

	err = tbl.UpdateField(tickKey{Symbol: 9, Bucket: 9}, func(r *tickRow) {})
	if !errors.Is(err, exception.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %+v", err)
	}
}

func TestSecondaryIndexConsistency(t *testing.T) {
	tbl := newTickTable(Retention{})
	for i := int64(0); i < 3; i++ {
		if err := tbl.Insert(tickRow{Symbol: 1, Bucket: i, Value: i, Ts: 100 + i}); err != nil {
			t.Fatalf("insert failed: %+v", err)
		}
	}
	if err := tbl.Insert(tickRow{Symbol: 2, Bucket: 0, Value: 9, Ts: 100}); err != nil {
		t.Fatalf("insert failed: %+v", err)
	}

	rows, err := tbl.ScanIndex("symbol", "1")
	if err != nil {
		t.Fatalf("scan index failed: %+v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want 3 rows for symbol 1, got %d", len(rows))
	}

	tbl.Delete(tickKey{Symbol: 1, Bucket: 0})
	rows, _ = tbl.ScanIndex("symbol", "1")
	if len(rows) != 2 {
		t.Fatalf("stale index entry after delete: got %d rows", len(rows))
	}

	_, err = tbl.ScanIndex("nope", "1")
	if !errors.Is(err, exception.ErrUnknownIndex) {
		t.Fatalf("want ErrUnknownIndex, got %+v", err)
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	tbl := newTickTable(Retention{})
	if tbl.Delete(tickKey{Symbol: 1, Bucket: 1}) {
		t.Fatal("delete of absent key should report false")
	}
}

func TestScanFilter(t *testing.T) {
	tbl := newTickTable(Retention{})
	for i := int64(0); i < 5; i++ {
		_ = tbl.Insert(tickRow{Symbol: 1, Bucket: i, Value: i, Ts: i})
	}
	rows := tbl.Scan(func(r tickRow) bool { return r.Value >= 3 })
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
}

func TestSweepMaxAge(t *testing.T) {
	now := time.Now()
	tbl := newTickTable(Retention{MaxAge: time.Hour})

	old := tickRow{Symbol: 1, Bucket: 1, Ts: now.Add(-2 * time.Hour).UnixNano()}
	young := tickRow{Symbol: 1, Bucket: 2, Ts: now.Add(-time.Minute).UnixNano()}
	_ = tbl.Insert(old)
	_ = tbl.Insert(young)

	removed, err := tbl.SweepOnce(now)
	if err != nil {
		t.Fatalf("sweep failed: %+v", err)
	}
	if removed != 1 {
		t.Fatalf("want 1 removed, got %d", removed)
	}
	if _, ok := tbl.Get(old.Key()); ok {
		t.Fatal("expired row still observable")
	}
	if _, ok := tbl.Get(young.Key()); !ok {
		t.Fatal("young row removed")
	}
}

func TestSweepMaxRows(t *testing.T) {
	now := time.Now()
	tbl := newTickTable(Retention{MaxRows: 3})
	for i := int64(0); i < 5; i++ {
		_ = tbl.Insert(tickRow{Symbol: 1, Bucket: i, Ts: now.Add(time.Duration(i) * time.Second).UnixNano()})
	}

	removed, err := tbl.SweepOnce(now.Add(time.Minute))
	if err != nil {
		t.Fatalf("sweep failed: %+v", err)
	}
	if removed != 2 {
		t.Fatalf("want 2 removed, got %d", removed)
	}
	if _, ok := tbl.Get(tickKey{Symbol: 1, Bucket: 0}); ok {
		t.Fatal("oldest row should be evicted")
	}
	if _, ok := tbl.Get(tickKey{Symbol: 1, Bucket: 4}); !ok {
		t.Fatal("newest row should survive")
	}
}

func TestAgeQueueBoundedUnderUpsert(t *testing.T) {
	now := time.Now()
	tbl := newTickTable(Retention{MaxRows: 1024})

	for i := int64(0); i < 100000; i++ {
		tbl.Upsert(tickRow{Symbol: 1, Bucket: 0, Value: i, Ts: now.UnixNano() + i})
		if _, err := tbl.SweepOnce(now); err != nil {
			t.Fatalf("sweep failed: %+v", err)
		}
	}

	tbl.mu.RLock()
	qlen := len(tbl.ageq)
	tbl.mu.RUnlock()
	if qlen > 4 {
		t.Fatalf("age queue not compacted: %d entries for 1 live row", qlen)
	}
	if tbl.Len() != 1 {
		t.Fatalf("want 1 row, got %d", tbl.Len())
	}
}

func TestAgeQueueCompactedWithoutSweep(t *testing.T) {
	now := time.Now()
	tbl := newTickTable(Retention{MaxRows: 1024})

	tbl.Upsert(tickRow{Symbol: 2, Bucket: 0, Ts: now.UnixNano()})
	for i := int64(0); i < 10000; i++ {
		tbl.Upsert(tickRow{Symbol: 1, Bucket: 0, Value: i, Ts: now.UnixNano() + i})
	}

	tbl.mu.RLock()
	qlen := len(tbl.ageq)
	tbl.mu.RUnlock()
	if qlen > 64 {
		t.Fatalf("age queue not compacted: %d entries for 2 live rows", qlen)
	}
}

func TestSweepSkipsRefreshedRows(t *testing.T) {
	now := time.Now()
	tbl := newTickTable(Retention{MaxAge: time.Hour})

	stale := tickRow{Symbol: 1, Bucket: 1, Ts: now.Add(-2 * time.Hour).UnixNano()}
	_ = tbl.Insert(stale)
	refreshed := stale
	refreshed.Ts = now.UnixNano()
	tbl.Upsert(refreshed)

	removed, err := tbl.SweepOnce(now)
	if err != nil {
		t.Fatalf("sweep failed: %+v", err)
	}
	if removed != 0 {
		t.Fatalf("refreshed row evicted: removed=%d", removed)
	}
	if _, ok := tbl.Get(stale.Key()); !ok {
		t.Fatal("refreshed row missing")
	}
}
