package ingest

import (
	"context"

	"main/internal/schema"
)

// Publisher receives normalized market events from a feed. Implementations
// must not block.
type Publisher interface {
	PublishMarket(ev schema.MarketEvent)
}

// Feed is a venue market-data source. Start subscribes and begins pushing
// normalized events to the publisher; Close tears the connection down.
type Feed interface {
	Start(ctx context.Context) error
	Close()
}
