package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/adapter"
	"main/internal/ingest"
	"main/internal/ingest/binance"
	"main/internal/ledger"
	"main/internal/obs"
	"main/internal/og"
	"main/internal/ops"
	"main/internal/pipeline"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/store"
	"main/internal/table"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "engine.json", "Path to JSON config")
	flag.Parse()

	ctx, stop := signalContext()
	defer stop()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "trading-engine",
			ServerAddress:   loaded.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()

	led := ledger.New(loaded.Registry)
	for _, d := range loaded.Deposits {
		led.Deposit(d.Account, d.Asset, d.Amount)
	}

	board := signal.NewBoard(loaded.Registry, loaded.Board)
	for _, w := range loaded.Watches {
		board.WatchDifference(w.Symbol, w.VenueA, w.VenueB)
	}

	var writers sync.WaitGroup
	drainCtx := context.Background()

	orders := og.NewOrderTable()
	var trades *store.TradeWriter
	var orderFwd *store.RowForwarder[uint64, og.OrderRow]
	if loaded.Postgres.Enabled {
		client, err := conn.New(conn.Option{
			Host:     loaded.Postgres.Host,
			Port:     loaded.Postgres.Port,
			User:     loaded.Postgres.User,
			Password: loaded.Postgres.Password,
			Database: loaded.Postgres.Database,
			SSLMode:  loaded.Postgres.SSLMode,
		})
		if err != nil {
			log.Fatalf("postgres connect failed: %v", err)
		}
		defer client.Close()
		if err := client.Ping(ctx); err != nil {
			log.Fatalf("postgres ping failed: %v", err)
		}

		st, err := store.New(client.DB())
		if err != nil {
			log.Fatalf("store init failed: %v", err)
		}
		if err := st.EnsureVersion(ctx); err != nil {
			log.Fatalf("schema version gate failed: %v", err)
		}

		orderFwd = store.NewOrderForwarder(st, 4096)
		persistent, err := og.NewPersistentOrderTable(orderFwd)
		if err != nil {
			log.Fatalf("order table init failed: %v", err)
		}
		orders = persistent.Table

		trades = store.NewTradeWriter(st, 4096)
		writers.Add(2)
		go func() {
			defer writers.Done()
			orderFwd.Run(drainCtx)
		}()
		go func() {
			defer writers.Done()
			trades.Run(drainCtx)
		}()
	}

	paper := adapter.NewPaper()
	mgr := og.NewManager(loaded.Order, loaded.Registry, led, paper, orders)
	mgr.Audit().Observe(func(og.AuditEntry) { metrics.IncAnomaly() })

	pipe := pipeline.New(loaded.Pipeline, loaded.Registry, board, led,
		risk.NewEngine(loaded.Risk), mgr, nil, metrics, trades)
	paper.Bind(pipe)

	sweepables := append(board.Sweepables(), mgr.Archiver())
	sweeper := table.NewSweeper(loaded.SweepInterval, sweepables...)
	sweeper.Observe(metrics.AddRowsSwept)
	go sweeper.Run(ctx)

	if loaded.Metrics.Addr != "" {
		go serveMetrics(ctx, loaded.Metrics.Addr)
	}

	if loaded.Feed.Enabled {
		feed, err := buildFeed(ctx, loaded, pipe)
		if err != nil {
			log.Fatalf("feed init failed: %v", err)
		}
		if err := feed.Start(ctx); err != nil {
			log.Fatalf("feed start failed: %v", err)
		}
		defer feed.Close()
	}

	logs.Info("engine started")
	go func() {
		<-ctx.Done()
		logs.Info("shutting down")
		pipe.Close()
	}()
	pipe.Run(drainCtx)

	if trades != nil {
		trades.Close()
	}
	if orderFwd != nil {
		orderFwd.Close()
	}
	writers.Wait()
	logs.Info("engine stopped")
}

func signalContext() (context.Context, context.CancelFunc) {
	return ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logs.Errorf("metrics server, err: %+v", err)
	}
}

func buildFeed(ctx context.Context, loaded ops.Loaded, pub *pipeline.Pipeline) (ingest.Feed, error) {
	if loaded.Feed.Kind == "synthetic" {
		return ingest.NewSynthetic(loaded.Registry, ingest.SyntheticConfig{
			Interval:  time.Duration(loaded.Feed.IntervalMs) * time.Millisecond,
			BasePrice: loaded.Feed.BasePrice,
			Spread:    loaded.Feed.Spread,
			Size:      loaded.Feed.Size,
		}, pub)
	}
	venueID, ok := loaded.Registry.VenueIDByName(loaded.Feed.Venue)
	if !ok {
		return nil, fmt.Errorf("feed venue not found: %s", loaded.Feed.Venue)
	}
	symbols := make(map[string]schema.SymbolID, len(loaded.Feed.Symbols))
	for _, name := range loaded.Feed.Symbols {
		id, ok := loaded.Registry.SymbolIDByName(name, venueID)
		if !ok {
			return nil, fmt.Errorf("feed symbol not found: %s", name)
		}
		symbols[streamSymbol(name)] = id
	}
	return binance.New(ctx, loaded.Registry, venueID, symbols, pub), nil
}

// streamSymbol maps a registry symbol name to the exchange stream symbol:
// "BTC-USDT" becomes "BTCUSDT".
func streamSymbol(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", ""))
}
