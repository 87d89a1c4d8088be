package og

import "time"

// Archiver removes terminal orders long after their last update so the hot
// order table stays bounded. It plugs into the retention sweeper alongside
// the market-data tables.
type Archiver struct {
	m *Manager
}

// Archiver returns the sweepable archival view of the order table.
func (m *Manager) Archiver() *Archiver {
	return &Archiver{m: m}
}

// Name implements table.Sweepable.
func (a *Archiver) Name() string {
	return "orders"
}

// SweepOnce implements table.Sweepable. Only terminal orders past the
// archive window are removed; live orders are never touched.
func (a *Archiver) SweepOnce(now time.Time) (int, error) {
	cutoff := now.Add(-a.m.cfg.ArchiveAfter).UnixNano()
	stale := a.m.orders.Scan(func(r OrderRow) bool {
		return r.State.IsTerminal() && r.TsUpdate < cutoff
	})
	removed := 0
	for _, row := range stale {
		if a.m.orders.Delete(row.ID) {
			removed++
		}
	}
	return removed, nil
}
