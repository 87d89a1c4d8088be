package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

const testConfig = `{
  "registry": {
    "venues": [{"name": "alpha"}, {"name": "beta"}],
    "assets": [{"name": "BTC", "scale": 1}, {"name": "USD", "scale": 0}],
    "symbols": [
      {"name": "BTC-PERP", "venue": "alpha", "base": "BTC", "quote": "USD", "scale": {"priceScale": 0, "quantityScale": 1}},
      {"name": "BTC-PERP", "venue": "beta", "base": "BTC", "quote": "USD", "scale": {"priceScale": 0, "quantityScale": 1}}
    ],
    "accounts": [{"name": "A1", "balances": [{"asset": "USD", "amount": 60000}]}]
  },
  "risk": {"maxOrderQty": 100, "orderRateLimit": 10, "orderRateWindowMs": 1000},
  "order": {"submitTimeoutMs": 500, "archiveAfterMs": 3600000},
  "retention": {"quoteMaxAgeMs": 5000, "quoteMaxRows": 4096, "signalBucketMs": 1000, "signalMaxAgeMs": 3600000, "candleMaxAgeMs": 3600000, "sweepIntervalMs": 1000},
  "watches": [{"symbol": "BTC-PERP", "venueA": "alpha", "venueB": "beta"}],
  "metrics": {"addr": ":9100"}
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	loaded, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	venueA, ok := loaded.Registry.VenueIDByName("alpha")
	require.True(t, ok)
	_, ok = loaded.Registry.SymbolIDByName("BTC-PERP", venueA)
	assert.True(t, ok)

	require.Len(t, loaded.Deposits, 1)
	assert.Equal(t, schema.Amount(60000), loaded.Deposits[0].Amount)

	assert.Equal(t, time.Second, loaded.Risk.OrderRateWindow)
	assert.Equal(t, 500*time.Millisecond, loaded.Order.SubmitTimeout)
	assert.Equal(t, 5*time.Second, loaded.Board.QuoteRetention.MaxAge)
	assert.Equal(t, 4096, loaded.Board.QuoteRetention.MaxRows)
	assert.Equal(t, time.Second, loaded.Board.Bucket)
	assert.Equal(t, time.Hour, loaded.Board.HistoryRetention.MaxAge)
	assert.Equal(t, time.Hour, loaded.Board.CandleRetention.MaxAge)
	assert.Equal(t, time.Second, loaded.SweepInterval)

	require.Len(t, loaded.Watches, 1)
	assert.Equal(t, "BTC-PERP", loaded.Watches[0].Symbol)
	assert.NotEqual(t, loaded.Watches[0].VenueA, loaded.Watches[0].VenueB)

	assert.Equal(t, ":9100", loaded.Metrics.Addr)
}

func TestLoadRejectsUnknownReferences(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
	}{
		{
			name: "symbol references missing venue",
			body: `{"registry": {"assets": [{"name": "BTC", "scale": 1}, {"name": "USD", "scale": 0}],
				"symbols": [{"name": "X", "venue": "nope", "base": "BTC", "quote": "USD"}]}}`,
		},
		{
			name: "seed balance references missing asset",
			body: `{"registry": {"accounts": [{"name": "A1", "balances": [{"asset": "nope", "amount": 1}]}]}}`,
		},
		{
			name: "watch references missing venue",
			body: `{"registry": {"venues": [{"name": "alpha"}]},
				"watches": [{"symbol": "X", "venueA": "alpha", "venueB": "nope"}]}`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}
