package og

import (
	"sync"
	"time"

	"github.com/yanun0323/logs"
)

// AuditKind classifies an ignored or anomalous order event.
type AuditKind uint16

const (
	AuditUnknownOrder AuditKind = iota + 1
	AuditLateAck
	AuditDuplicateFill
	AuditFillAfterTerminal
	AuditFillOverflow
	AuditIllegalTransition
)

// String returns a short label.
func (k AuditKind) String() string {
	switch k {
	case AuditUnknownOrder:
		return "unknown_order"
	case AuditLateAck:
		return "late_ack"
	case AuditDuplicateFill:
		return "duplicate_fill"
	case AuditFillAfterTerminal:
		return "fill_after_terminal"
	case AuditFillOverflow:
		return "fill_overflow"
	case AuditIllegalTransition:
		return "illegal_transition"
	default:
		return "unknown"
	}
}

// AuditEntry records one dropped event with full context. Exchange event
// streams race with local transitions; dropped events are reconciled from
// this trail instead of being silently lost.
type AuditEntry struct {
	OrderID uint64
	Kind    AuditKind
	Detail  string
	Ts      int64
}

// AuditTrail is a bounded in-memory reconciliation log of ignored order
// events.
type AuditTrail struct {
	mu      sync.Mutex
	cap     int
	entries []AuditEntry
	total   uint64
	observe func(AuditEntry)
}

// NewAuditTrail creates a trail keeping at most capacity entries.
func NewAuditTrail(capacity int) *AuditTrail {
	if capacity <= 0 {
		capacity = 1024
	}
	return &AuditTrail{cap: capacity}
}

// Observe registers a callback invoked on every recorded entry.
func (a *AuditTrail) Observe(fn func(AuditEntry)) {
	a.mu.Lock()
	a.observe = fn
	a.mu.Unlock()
}

// Record appends an entry, evicting the oldest beyond capacity.
func (a *AuditTrail) Record(orderID uint64, kind AuditKind, detail string) {
	logs.Warnf("order anomaly: order=%d kind=%s %s", orderID, kind, detail)
	entry := AuditEntry{
		OrderID: orderID,
		Kind:    kind,
		Detail:  detail,
		Ts:      time.Now().UnixNano(),
	}
	a.mu.Lock()
	a.total++
	a.entries = append(a.entries, entry)
	if len(a.entries) > a.cap {
		a.entries = a.entries[len(a.entries)-a.cap:]
	}
	observe := a.observe
	a.mu.Unlock()
	if observe != nil {
		observe(entry)
	}
}

// Entries returns a copy of the retained entries.
func (a *AuditTrail) Entries() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Total returns the number of entries ever recorded.
func (a *AuditTrail) Total() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
