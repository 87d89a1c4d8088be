package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"main/internal/schema"
)

// SyntheticConfig shapes the generated quote stream.
type SyntheticConfig struct {
	Interval  time.Duration
	BasePrice int64
	Spread    int64
	Size      int64
	Seed      int64
}

// SyntheticFeed emits random-walk quotes for every registered symbol on a
// fixed interval. Paper trading and load tests run against it instead of
// a venue connection.
type SyntheticFeed struct {
	cfg     SyntheticConfig
	symbols []schema.Symbol
	pub     Publisher
	rng     *rand.Rand
	prices  []int64
	cancel  context.CancelFunc
}

// NewSynthetic creates a synthetic feed over all symbols in the registry.
func NewSynthetic(reg *schema.Registry, cfg SyntheticConfig, pub Publisher) (*SyntheticFeed, error) {
	symbols := reg.Symbols()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("registry has no symbols")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 1000
	}
	if cfg.Spread < 0 {
		cfg.Spread = 0
	}
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	prices := make([]int64, len(symbols))
	for i := range prices {
		prices[i] = cfg.BasePrice
	}
	return &SyntheticFeed{
		cfg:     cfg,
		symbols: append([]schema.Symbol(nil), symbols...),
		pub:     pub,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		prices:  prices,
	}, nil
}

// Start implements Feed.
func (f *SyntheticFeed) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	go f.run(ctx)
	return nil
}

// Close implements Feed.
func (f *SyntheticFeed) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *SyntheticFeed) run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	idx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			f.tick(idx, now)
			idx = (idx + 1) % len(f.symbols)
		}
	}
}

// one random-walk step, floored at the spread so the book never crosses
// itself
func (f *SyntheticFeed) tick(idx int, now time.Time) {
	sym := f.symbols[idx]
	f.prices[idx] += f.rng.Int63n(3) - 1
	if f.prices[idx] <= f.cfg.Spread {
		f.prices[idx] = f.cfg.Spread + 1
	}
	price := f.prices[idx]

	f.pub.PublishMarket(schema.MarketEvent{
		SymbolID: sym.ID,
		VenueID:  sym.Venue,
		Kind:     schema.MarketDataQuote,
		TsEvent:  now.UnixNano(),
		TsRecv:   now.UnixNano(),
		BidPrice: schema.Price(price - f.cfg.Spread),
		BidSize:  schema.Quantity(f.cfg.Size),
		AskPrice: schema.Price(price + f.cfg.Spread),
		AskSize:  schema.Quantity(f.cfg.Size),
	})
}
