package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/ledger"
	"main/internal/obs"
	"main/internal/og"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/signal"
	"main/internal/store"
	"main/pkg/exception"
)

// View is the read surface handed to strategies: signal snapshots and
// ledger balances, both copy-on-read.
type View struct {
	Board  *signal.Board
	Ledger *ledger.Ledger
}

// Strategy turns market events into order intents. OnMarket runs on the
// single market consumer goroutine and must not block.
type Strategy interface {
	Name() string
	OnMarket(view View, ev schema.MarketEvent) []schema.OrderIntent
}

// Config sizes the stage queues.
type Config struct {
	MarketQueueSize int `json:"marketQueueSize"`
	AckQueueSize    int `json:"ackQueueSize"`
	FillQueueSize   int `json:"fillQueueSize"`
}

const (
	defaultMarketQueueSize = 4096
	defaultAckQueueSize    = 1024
	defaultFillQueueSize   = 1024
)

// Pipeline wires the stages: feeds publish market events onto a bounded
// queue; the market consumer owns all signal-table writes and invokes the
// strategy; allowed intents go to the order manager; adapter events come
// back through the ack and fill queues. Each queue has exactly one
// consumer goroutine, so no stage holds a lock across a blocking call.
type Pipeline struct {
	reg      *schema.Registry
	board    *signal.Board
	led      *ledger.Ledger
	riskEng  *risk.Engine
	mgr      *og.Manager
	strategy Strategy
	metrics  *obs.Metrics
	trades   *store.TradeWriter

	market *bus.Queue[schema.MarketEvent]
	acks   *bus.Queue[schema.OrderAck]
	fills  *bus.Queue[schema.Fill]

	wg sync.WaitGroup
}

// New creates a pipeline. Metrics and the trade writer may be nil.
func New(cfg Config, reg *schema.Registry, board *signal.Board, led *ledger.Ledger,
	riskEng *risk.Engine, mgr *og.Manager, strategy Strategy,
	metrics *obs.Metrics, trades *store.TradeWriter) *Pipeline {
	if cfg.MarketQueueSize <= 0 {
		cfg.MarketQueueSize = defaultMarketQueueSize
	}
	if cfg.AckQueueSize <= 0 {
		cfg.AckQueueSize = defaultAckQueueSize
	}
	if cfg.FillQueueSize <= 0 {
		cfg.FillQueueSize = defaultFillQueueSize
	}
	return &Pipeline{
		reg:      reg,
		board:    board,
		led:      led,
		riskEng:  riskEng,
		mgr:      mgr,
		strategy: strategy,
		metrics:  metrics,
		trades:   trades,
		market:   bus.NewQueue[schema.MarketEvent]("market", cfg.MarketQueueSize),
		acks:     bus.NewQueue[schema.OrderAck]("acks", cfg.AckQueueSize),
		fills:    bus.NewQueue[schema.Fill]("fills", cfg.FillQueueSize),
	}
}

// PublishMarket enqueues a normalized market event. A full queue drops the
// event; feeds always carry the latest state in the next event.
func (p *Pipeline) PublishMarket(ev schema.MarketEvent) {
	if err := p.market.TryPublish(ev); err != nil {
		p.metrics.IncQueueDrop(p.market.Name())
	}
}

// OnAck implements adapter.Events.
func (p *Pipeline) OnAck(ack schema.OrderAck) {
	if err := p.acks.TryPublish(ack); err != nil {
		p.metrics.IncQueueDrop(p.acks.Name())
		logs.Errorf("ack queue rejected order %d, err: %+v", ack.OrderID, err)
	}
}

// OnFill implements adapter.Events.
func (p *Pipeline) OnFill(fill schema.Fill) {
	if err := p.fills.TryPublish(fill); err != nil {
		p.metrics.IncQueueDrop(p.fills.Name())
		logs.Errorf("fill queue rejected order %d seq %d, err: %+v", fill.OrderID, fill.Seq, err)
	}
}

// Run starts the stage consumers and blocks until all of them have
// drained after Close or context cancellation.
func (p *Pipeline) Run(ctx context.Context) {
	p.wg.Add(3)
	go func() {
		defer p.wg.Done()
		p.market.Run(ctx, func(ev schema.MarketEvent) { p.consumeMarket(ctx, ev) })
	}()
	go func() {
		defer p.wg.Done()
		p.acks.Run(ctx, p.consumeAck)
	}()
	go func() {
		defer p.wg.Done()
		p.fills.Run(ctx, p.consumeFill)
	}()
	p.wg.Wait()
}

// Close stops the queues. Buffered events are still drained by Run.
func (p *Pipeline) Close() {
	p.market.Close()
	p.acks.Close()
	p.fills.Close()
}

func (p *Pipeline) consumeMarket(ctx context.Context, ev schema.MarketEvent) {
	p.metrics.ObserveEvent(schema.EventMarketData, ev.TsEvent, ev.TsRecv)
	p.board.OnMarket(ev)
	if p.strategy == nil {
		return
	}
	for _, intent := range p.strategy.OnMarket(View{Board: p.board, Ledger: p.led}, ev) {
		if _, err := p.SubmitIntent(ctx, intent); err != nil {
			logs.Warnf("strategy %s intent dropped, err: %+v", p.strategy.Name(), err)
		}
	}
}

func (p *Pipeline) consumeAck(ack schema.OrderAck) {
	p.metrics.ObserveEvent(schema.EventOrderAck, ack.TsEvent, 0)
	p.mgr.OnAck(ack)
}

func (p *Pipeline) consumeFill(fill schema.Fill) {
	p.metrics.ObserveEvent(schema.EventFill, fill.TsEvent, 0)
	before, _ := p.mgr.Order(fill.OrderID)
	p.mgr.OnFill(fill)
	row, ok := p.mgr.Order(fill.OrderID)
	if !ok || row.FilledQty <= before.FilledQty {
		// dropped by the manager, already audited
		return
	}
	p.metrics.IncFillApplied()
	if p.trades != nil {
		p.trades.Record(fill, row)
	}
}

// SubmitIntent runs the pre-trade risk checks and dispatches the intent
// through the order manager.
func (p *Pipeline) SubmitIntent(ctx context.Context, intent schema.OrderIntent) (uint64, error) {
	p.metrics.ObserveEvent(schema.EventOrderIntent, intent.TsCreate, 0)
	sym, ok := p.reg.Symbol(intent.SymbolID)
	if !ok {
		return 0, errors.Wrap(exception.ErrOrderInvalidIntent, "unknown symbol")
	}

	state := risk.StateView{}
	if pos, ok := p.led.Position(intent.AccountID, intent.SymbolID); ok {
		state.Position = pos.Size
	}
	if quote, ok := p.board.Quote(intent.SymbolID); ok && quote.BidPrice > 0 && quote.AskPrice > 0 {
		state.ReferencePrice = (quote.BidPrice + quote.AskPrice) / 2
	}
	if decision := p.riskEng.Evaluate(intent, sym, state); !decision.Allowed() {
		p.metrics.IncRiskDenial(decision.Reason)
		return 0, errors.Wrap(exception.ErrOrderRiskDenied, decision.Reason.String())
	}

	start := time.Now()
	id, err := p.mgr.Submit(ctx, intent)
	p.metrics.ObserveOrderFlow(time.Since(start))
	if err != nil {
		p.metrics.IncOrderRejected(intent.Side)
		return id, err
	}
	p.metrics.IncOrderSubmitted(intent.Side)
	return id, nil
}
