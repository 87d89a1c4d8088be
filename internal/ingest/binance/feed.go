package binance

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/ingest"
	"main/internal/schema"
)

const baseWsUrl = "wss://data-stream.binance.vision/ws"

// Feed streams binance book tickers and aggregated trades, normalizes
// them into scaled-integer market events and hands them to the publisher.
type Feed struct {
	wss     *ws.WebSocket
	reg     *schema.Registry
	venue   schema.VenueID
	symbols map[string]schema.SymbolID
	pub     ingest.Publisher
	reqID   int64
}

// New creates a feed. The symbols map keys are upper-case exchange stream
// symbols (e.g. "BTCUSDT") mapped to registry symbol IDs.
func New(ctx context.Context, reg *schema.Registry, venue schema.VenueID,
	symbols map[string]schema.SymbolID, pub ingest.Publisher) *Feed {
	return &Feed{
		wss:     ws.New(ctx, baseWsUrl),
		reg:     reg,
		venue:   venue,
		symbols: symbols,
		pub:     pub,
	}
}

// Start implements ingest.Feed.
func (f *Feed) Start(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	for streamSymbol := range f.symbols {
		if err := f.subscribe(ctx, streamSymbol); err != nil {
			return errors.Wrap(err, "subscribe").With("symbol", streamSymbol)
		}
	}
	f.observe(ctx)
	return nil
}

// Close implements ingest.Feed.
func (f *Feed) Close() {
	f.wss.Close()
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type subscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

func (f *Feed) subscribe(ctx context.Context, streamSymbol string) error {
	id := atomic.AddInt64(&f.reqID, 1)
	lower := strings.ToLower(streamSymbol)
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := subscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{
					fmt.Sprintf("%s@bookTicker", lower),
					fmt.Sprintf("%s@aggTrade", lower),
				},
				ID: id,
			}
			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp subscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != id {
				return false, nil
			}
			if resp.Result != nil {
				return false, errors.Errorf("subscribe rejected, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, true); err != nil {
		return errors.Wrap(err, "send and wait")
	}
	return nil
}

type bookTicker struct {
	UpdateID int64           `json:"u"`
	Symbol   string          `json:"s"`
	BidPrice decimal.Decimal `json:"b"`
	BidQty   decimal.Decimal `json:"B"`
	AskPrice decimal.Decimal `json:"a"`
	AskQty   decimal.Decimal `json:"A"`
}

type aggTrade struct {
	EventType string          `json:"e"`
	EventTime int64           `json:"E"`
	Symbol    string          `json:"s"`
	Price     decimal.Decimal `json:"p"`
	Qty       decimal.Decimal `json:"q"`
	TradeTime int64           `json:"T"`
}

func (f *Feed) observe(ctx context.Context) {
	ch, cancel := f.wss.Subscribe()

	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				f.dispatch(m)
			}
		}
	}()
}

// bookTicker payloads carry no event type field; anything without one that
// quotes both sides is treated as a ticker.
func (f *Feed) dispatch(m ws.Message) {
	var envelope struct {
		EventType string `json:"e"`
	}
	if err := m.Unmarshal(&envelope); err != nil {
		return
	}

	switch envelope.EventType {
	case "aggTrade":
		trade, ok := ws.ReadMessage[aggTrade](m)
		if !ok {
			return
		}
		f.publishTrade(trade)
	case "":
		ticker, ok := ws.ReadMessage[bookTicker](m)
		if !ok || ticker.Symbol == "" {
			return
		}
		f.publishQuote(ticker)
	}
}

func (f *Feed) publishQuote(t bookTicker) {
	symbolID, sym, ok := f.resolve(t.Symbol)
	if !ok {
		return
	}
	bidPrice, err1 := ingest.ParseScaled(t.BidPrice.String(), sym.Scale.PriceScale)
	askPrice, err2 := ingest.ParseScaled(t.AskPrice.String(), sym.Scale.PriceScale)
	bidQty, err3 := ingest.ParseScaled(t.BidQty.String(), sym.Scale.QuantityScale)
	askQty, err4 := ingest.ParseScaled(t.AskQty.String(), sym.Scale.QuantityScale)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		logs.Warnf("drop malformed ticker for %s", t.Symbol)
		return
	}
	f.pub.PublishMarket(schema.MarketEvent{
		SymbolID: symbolID,
		VenueID:  f.venue,
		Kind:     schema.MarketDataQuote,
		TsEvent:  time.Now().UnixNano(),
		TsRecv:   time.Now().UnixNano(),
		BidPrice: schema.Price(bidPrice),
		BidSize:  schema.Quantity(bidQty),
		AskPrice: schema.Price(askPrice),
		AskSize:  schema.Quantity(askQty),
	})
}

func (f *Feed) publishTrade(t aggTrade) {
	symbolID, sym, ok := f.resolve(t.Symbol)
	if !ok {
		return
	}
	price, err1 := ingest.ParseScaled(t.Price.String(), sym.Scale.PriceScale)
	qty, err2 := ingest.ParseScaled(t.Qty.String(), sym.Scale.QuantityScale)
	if err1 != nil || err2 != nil {
		logs.Warnf("drop malformed trade for %s", t.Symbol)
		return
	}
	f.pub.PublishMarket(schema.MarketEvent{
		SymbolID: symbolID,
		VenueID:  f.venue,
		Kind:     schema.MarketDataTrade,
		TsEvent:  t.TradeTime * int64(time.Millisecond),
		TsRecv:   time.Now().UnixNano(),
		Price:    schema.Price(price),
		Size:     schema.Quantity(qty),
	})
}

func (f *Feed) resolve(streamSymbol string) (schema.SymbolID, schema.Symbol, bool) {
	id, ok := f.symbols[streamSymbol]
	if !ok {
		return 0, schema.Symbol{}, false
	}
	sym, ok := f.reg.Symbol(id)
	return id, sym, ok
}
