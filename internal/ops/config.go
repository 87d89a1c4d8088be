package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"main/internal/og"
	"main/internal/pipeline"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/table"
)

// FileConfig mirrors the JSON config layout. Durations are milliseconds.
type FileConfig struct {
	Registry  RegistryConfig  `json:"registry"`
	Risk      RiskConfig      `json:"risk"`
	Order     OrderConfig     `json:"order"`
	Pipeline  pipeline.Config `json:"pipeline"`
	Retention RetentionConfig `json:"retention"`
	Watches   []WatchConfig   `json:"watches"`
	Feed      FeedConfig      `json:"feed"`
	Postgres  PostgresConfig  `json:"postgres"`
	Profiling ProfilingConfig `json:"profiling"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// RegistryConfig defines venue, asset, symbol and account mappings.
type RegistryConfig struct {
	Venues   []VenueConfig   `json:"venues"`
	Assets   []AssetConfig   `json:"assets"`
	Symbols  []SymbolConfig  `json:"symbols"`
	Accounts []AccountConfig `json:"accounts"`
}

// VenueConfig describes a venue entry.
type VenueConfig struct {
	Name string `json:"name"`
}

// AssetConfig describes an asset entry.
type AssetConfig struct {
	Name  string       `json:"name"`
	Scale schema.Scale `json:"scale"`
}

// SymbolConfig describes a symbol entry.
type SymbolConfig struct {
	Name  string           `json:"name"`
	Venue string           `json:"venue"`
	Base  string           `json:"base"`
	Quote string           `json:"quote"`
	Scale schema.ScaleSpec `json:"scale"`
}

// AccountConfig describes an account and its seed balances.
type AccountConfig struct {
	Name     string          `json:"name"`
	Balances []BalanceConfig `json:"balances"`
}

// BalanceConfig seeds one asset balance.
type BalanceConfig struct {
	Asset  string        `json:"asset"`
	Amount schema.Amount `json:"amount"`
}

// RiskConfig mirrors risk.Config with the rate window in milliseconds.
type RiskConfig struct {
	KillSwitch           bool            `json:"killSwitch"`
	MaxOrderQty          schema.Quantity `json:"maxOrderQty"`
	MaxOrderNotional     schema.Amount   `json:"maxOrderNotional"`
	MaxPosition          schema.Quantity `json:"maxPosition"`
	OrderRateLimit       int             `json:"orderRateLimit"`
	OrderRateWindowMs    int64           `json:"orderRateWindowMs"`
	MaxPriceDeviationBps int64           `json:"maxPriceDeviationBps"`
}

// OrderConfig sets order manager timeouts in milliseconds.
type OrderConfig struct {
	SubmitTimeoutMs int64 `json:"submitTimeoutMs"`
	CancelTimeoutMs int64 `json:"cancelTimeoutMs"`
	ArchiveAfterMs  int64 `json:"archiveAfterMs"`
}

// RetentionConfig bounds the signal tables and sets the sweep cadence.
type RetentionConfig struct {
	QuoteMaxAgeMs   int64 `json:"quoteMaxAgeMs"`
	QuoteMaxRows    int   `json:"quoteMaxRows"`
	SignalBucketMs  int64 `json:"signalBucketMs"`
	SignalMaxAgeMs  int64 `json:"signalMaxAgeMs"`
	CandleMaxAgeMs  int64 `json:"candleMaxAgeMs"`
	SweepIntervalMs int64 `json:"sweepIntervalMs"`
}

// WatchConfig registers a venue pair difference signal.
type WatchConfig struct {
	Symbol string `json:"symbol"`
	VenueA string `json:"venueA"`
	VenueB string `json:"venueB"`
}

// FeedConfig enables a market-data feed. Kind is "binance" or
// "synthetic"; the synthetic fields are ignored for live feeds.
type FeedConfig struct {
	Enabled    bool     `json:"enabled"`
	Kind       string   `json:"kind"`
	Venue      string   `json:"venue"`
	Symbols    []string `json:"symbols"`
	IntervalMs int64    `json:"intervalMs"`
	BasePrice  int64    `json:"basePrice"`
	Spread     int64    `json:"spread"`
	Size       int64    `json:"size"`
}

// PostgresConfig enables the durable store.
type PostgresConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
}

// MetricsConfig exposes the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// Watch is a resolved venue pair difference signal.
type Watch struct {
	Symbol string
	VenueA schema.VenueID
	VenueB schema.VenueID
}

// Deposit is one resolved seed balance.
type Deposit struct {
	Account schema.AccountID
	Asset   schema.AssetID
	Amount  schema.Amount
}

// Loaded is the resolved configuration ready for wiring.
type Loaded struct {
	Registry       *schema.Registry
	Deposits       []Deposit
	Risk           risk.Config
	Order          og.Config
	Pipeline      pipeline.Config
	Board         signal.Config
	SweepInterval time.Duration
	Watches        []Watch
	Feed           FeedConfig
	Postgres       PostgresConfig
	Profiling      ProfilingConfig
	Metrics        MetricsConfig
}

// Load reads a JSON config file and resolves names against the registry.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	reg, deposits, err := buildRegistry(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}
	watches, err := resolveWatches(cfg.Watches, reg)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Registry: reg,
		Deposits: deposits,
		Risk: risk.Config{
			KillSwitch:           cfg.Risk.KillSwitch,
			MaxOrderQty:          cfg.Risk.MaxOrderQty,
			MaxOrderNotional:     cfg.Risk.MaxOrderNotional,
			MaxPosition:          cfg.Risk.MaxPosition,
			OrderRateLimit:       cfg.Risk.OrderRateLimit,
			OrderRateWindow:      time.Duration(cfg.Risk.OrderRateWindowMs) * time.Millisecond,
			MaxPriceDeviationBps: cfg.Risk.MaxPriceDeviationBps,
		},
		Order: og.Config{
			SubmitTimeout: time.Duration(cfg.Order.SubmitTimeoutMs) * time.Millisecond,
			CancelTimeout: time.Duration(cfg.Order.CancelTimeoutMs) * time.Millisecond,
			ArchiveAfter:  time.Duration(cfg.Order.ArchiveAfterMs) * time.Millisecond,
		},
		Pipeline: cfg.Pipeline,
		Board: signal.Config{
			QuoteRetention: table.Retention{
				MaxAge:  time.Duration(cfg.Retention.QuoteMaxAgeMs) * time.Millisecond,
				MaxRows: cfg.Retention.QuoteMaxRows,
			},
			HistoryRetention: table.Retention{
				MaxAge: time.Duration(cfg.Retention.SignalMaxAgeMs) * time.Millisecond,
			},
			CandleRetention: table.Retention{
				MaxAge: time.Duration(cfg.Retention.CandleMaxAgeMs) * time.Millisecond,
			},
			Bucket: time.Duration(cfg.Retention.SignalBucketMs) * time.Millisecond,
		},
		SweepInterval: time.Duration(cfg.Retention.SweepIntervalMs) * time.Millisecond,
		Watches:       watches,
		Feed:          cfg.Feed,
		Postgres:      cfg.Postgres,
		Profiling:     cfg.Profiling,
		Metrics:       cfg.Metrics,
	}, nil
}

func buildRegistry(cfg RegistryConfig) (*schema.Registry, []Deposit, error) {
	reg := schema.NewRegistry()
	for _, venue := range cfg.Venues {
		if _, err := reg.AddVenue(venue.Name); err != nil {
			return nil, nil, err
		}
	}
	for _, asset := range cfg.Assets {
		if asset.Scale < 0 {
			return nil, nil, fmt.Errorf("invalid scale for asset %s", asset.Name)
		}
		if _, err := reg.AddAsset(asset.Name, asset.Scale); err != nil {
			return nil, nil, err
		}
	}
	for _, sym := range cfg.Symbols {
		venueID, ok := reg.VenueIDByName(sym.Venue)
		if !ok {
			return nil, nil, fmt.Errorf("venue not found: %s", sym.Venue)
		}
		base, ok := reg.AssetIDByName(sym.Base)
		if !ok {
			return nil, nil, fmt.Errorf("base asset not found: %s", sym.Base)
		}
		quote, ok := reg.AssetIDByName(sym.Quote)
		if !ok {
			return nil, nil, fmt.Errorf("quote asset not found: %s", sym.Quote)
		}
		if sym.Scale.PriceScale < 0 || sym.Scale.QuantityScale < 0 {
			return nil, nil, fmt.Errorf("invalid scale for %s", sym.Name)
		}
		if _, err := reg.AddSymbol(sym.Name, venueID, base, quote, sym.Scale); err != nil {
			return nil, nil, err
		}
	}
	var deposits []Deposit
	for _, acct := range cfg.Accounts {
		acctID, err := reg.AddAccount(acct.Name)
		if err != nil {
			return nil, nil, err
		}
		for _, bal := range acct.Balances {
			assetID, ok := reg.AssetIDByName(bal.Asset)
			if !ok {
				return nil, nil, fmt.Errorf("seed asset not found: %s", bal.Asset)
			}
			if bal.Amount < 0 {
				return nil, nil, fmt.Errorf("negative seed balance for %s/%s", acct.Name, bal.Asset)
			}
			deposits = append(deposits, Deposit{Account: acctID, Asset: assetID, Amount: bal.Amount})
		}
	}
	return reg, deposits, nil
}

func resolveWatches(cfg []WatchConfig, reg *schema.Registry) ([]Watch, error) {
	watches := make([]Watch, 0, len(cfg))
	for _, w := range cfg {
		venueA, ok := reg.VenueIDByName(w.VenueA)
		if !ok {
			return nil, fmt.Errorf("watch venue not found: %s", w.VenueA)
		}
		venueB, ok := reg.VenueIDByName(w.VenueB)
		if !ok {
			return nil, fmt.Errorf("watch venue not found: %s", w.VenueB)
		}
		watches = append(watches, Watch{Symbol: w.Symbol, VenueA: venueA, VenueB: venueB})
	}
	return watches, nil
}
