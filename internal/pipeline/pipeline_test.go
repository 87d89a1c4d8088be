package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/adapter"
	"main/internal/ledger"
	"main/internal/og"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/table"
	"main/pkg/exception"
)

type pipeEnv struct {
	pipe  *Pipeline
	mgr   *og.Manager
	paper *adapter.Paper
	led   *ledger.Ledger

	acct schema.AccountID
	sym  schema.SymbolID
	usd  schema.AssetID
}

// onceStrategy emits one buy intent on the first quote it sees.
type onceStrategy struct {
	acct schema.AccountID
	sym  schema.SymbolID
	sent bool
}

func (s *onceStrategy) Name() string { return "once" }

func (s *onceStrategy) OnMarket(view View, ev schema.MarketEvent) []schema.OrderIntent {
	if s.sent || ev.Kind != schema.MarketDataQuote {
		return nil
	}
	s.sent = true
	return []schema.OrderIntent{{
		AccountID:   s.acct,
		SymbolID:    s.sym,
		Side:        schema.OrderSideBuy,
		Type:        schema.OrderTypeLimit,
		TimeInForce: schema.TimeInForceGTC,
		Price:       ev.BidPrice,
		Qty:         10,
		TsCreate:    time.Now().UnixNano(),
	}}
}

func newPipeEnv(t *testing.T, riskCfg risk.Config) *pipeEnv {
	t.Helper()
	reg := schema.NewRegistry()
	venue, err := reg.AddVenue("paper")
	require.NoError(t, err)
	btc, err := reg.AddAsset("BTC", 1)
	require.NoError(t, err)
	usd, err := reg.AddAsset("USD", 0)
	require.NoError(t, err)
	sym, err := reg.AddSymbol("BTC-PERP", venue, btc, usd, schema.ScaleSpec{PriceScale: 0, QuantityScale: 1})
	require.NoError(t, err)
	acct, err := reg.AddAccount("A1")
	require.NoError(t, err)

	led := ledger.New(reg)
	led.Deposit(acct, usd, 100000)

	board := signal.NewBoard(reg, signal.Config{QuoteRetention: table.Retention{MaxRows: 1024}})
	paper := adapter.NewPaper()
	mgr := og.NewManager(og.Config{}, reg, led, paper, og.NewOrderTable())
	pipe := New(Config{}, reg, board, led, risk.NewEngine(riskCfg), mgr,
		&onceStrategy{acct: acct, sym: sym}, nil, nil)
	paper.Bind(pipe)

	return &pipeEnv{pipe: pipe, mgr: mgr, paper: paper, led: led, acct: acct, sym: sym, usd: usd}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestMarketEventToFilledOrder(t *testing.T) {
	env := newPipeEnv(t, risk.Config{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.pipe.Run(t.Context())
	}()

	env.pipe.PublishMarket(schema.MarketEvent{
		SymbolID: env.sym,
		Kind:     schema.MarketDataQuote,
		TsEvent:  time.Now().UnixNano(),
		TsRecv:   time.Now().UnixNano(),
		BidPrice: 6000,
		BidSize:  100,
		AskPrice: 6001,
		AskSize:  100,
	})

	var orderID uint64
	waitFor(t, func() bool {
		open := env.mgr.OpenOrders(env.sym)
		for _, row := range open {
			if row.State == og.OrderStateAcked {
				orderID = row.ID
				return true
			}
		}
		return false
	})

	require.NoError(t, env.paper.Fill(orderID, 10, 6000))
	waitFor(t, func() bool {
		row, ok := env.mgr.Order(orderID)
		return ok && row.State == og.OrderStateFilled
	})

	row, _ := env.mgr.Order(orderID)
	assert.Equal(t, schema.Quantity(10), row.FilledQty)

	env.pipe.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after close")
	}
}

func TestRiskDenialShortCircuitsDispatch(t *testing.T) {
	env := newPipeEnv(t, risk.Config{KillSwitch: true})

	_, err := env.pipe.SubmitIntent(t.Context(), schema.OrderIntent{
		AccountID:   env.acct,
		SymbolID:    env.sym,
		Side:        schema.OrderSideBuy,
		Type:        schema.OrderTypeLimit,
		TimeInForce: schema.TimeInForceGTC,
		Price:       6000,
		Qty:         10,
	})
	require.ErrorIs(t, err, exception.ErrOrderRiskDenied)

	assert.Empty(t, env.mgr.OpenOrders(env.sym), "denied intent never reaches the manager")
	bal, _ := env.led.Balance(env.acct, env.usd)
	assert.Equal(t, schema.Amount(0), bal.Locked)
}

func TestQueueDropDoesNotBlockPublisher(t *testing.T) {
	env := newPipeEnv(t, risk.Config{})
	// not running: the market queue fills up and publishes must not block
	for i := 0; i < defaultMarketQueueSize+10; i++ {
		env.pipe.PublishMarket(schema.MarketEvent{SymbolID: env.sym, Kind: schema.MarketDataQuote})
	}
}
