package table

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

// Sweepable is anything the retention sweeper can drive. Both table
// variants and the order archiver implement it.
type Sweepable interface {
	Name() string
	SweepOnce(now time.Time) (int, error)
}

// Sweeper periodically trims a set of tables. A sweep error on one table
// never aborts the sweep of the others and never panics the process.
type Sweeper struct {
	interval time.Duration
	tables   []Sweepable
	observe  func(table string, removed int)
}

// NewSweeper creates a sweeper over the given tables.
func NewSweeper(interval time.Duration, tables ...Sweepable) *Sweeper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sweeper{interval: interval, tables: tables}
}

// Observe registers a callback invoked after each table sweep.
func (s *Sweeper) Observe(fn func(table string, removed int)) {
	s.observe = fn
}

// Run sweeps on a fixed interval until the context is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepAll(now)
		}
	}
}

func (s *Sweeper) sweepAll(now time.Time) {
	for _, t := range s.tables {
		removed, err := t.SweepOnce(now)
		if err != nil {
			logs.Errorf("sweep table %s, err: %+v", t.Name(), err)
			continue
		}
		if s.observe != nil {
			s.observe(t.Name(), removed)
		}
	}
}
