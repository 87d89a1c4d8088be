package risk

import (
	"testing"
	"time"

	"main/internal/schema"
)

var testSymbol = schema.Symbol{
	Name:  "BTC-PERP",
	Scale: schema.ScaleSpec{PriceScale: 0, QuantityScale: 1},
}

func limitBuy(price schema.Price, qty schema.Quantity) schema.OrderIntent {
	return schema.OrderIntent{
		Side:  schema.OrderSideBuy,
		Type:  schema.OrderTypeLimit,
		Price: price,
		Qty:   qty,
	}
}

func TestEvaluate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		cfg    Config
		intent schema.OrderIntent
		state  StateView
		want   Reason
	}{
		{
			name:   "allow within limits",
			cfg:    Config{MaxOrderQty: 100, MaxOrderNotional: 1000000, MaxPosition: 500},
			intent: limitBuy(50000, 10),
			want:   ReasonNone,
		},
		{
			name:   "kill switch denies everything",
			cfg:    Config{KillSwitch: true},
			intent: limitBuy(50000, 1),
			want:   ReasonKillSwitch,
		},
		{
			name:   "qty over limit",
			cfg:    Config{MaxOrderQty: 5},
			intent: limitBuy(50000, 10),
			want:   ReasonMaxQty,
		},
		{
			name:   "notional over limit",
			cfg:    Config{MaxOrderNotional: 40000},
			intent: limitBuy(50000, 10),
			want:   ReasonMaxNotional,
		},
		{
			name:   "price outside deviation band",
			cfg:    Config{MaxPriceDeviationBps: 100},
			intent: limitBuy(51000, 10),
			state:  StateView{ReferencePrice: 50000},
			want:   ReasonPriceBand,
		},
		{
			name:   "price inside deviation band",
			cfg:    Config{MaxPriceDeviationBps: 300},
			intent: limitBuy(51000, 10),
			state:  StateView{ReferencePrice: 50000},
			want:   ReasonNone,
		},
		{
			name:   "position limit counts existing exposure",
			cfg:    Config{MaxPosition: 15},
			intent: limitBuy(50000, 10),
			state:  StateView{Position: 10},
			want:   ReasonPositionLimit,
		},
		{
			name:   "sell reduces exposure",
			cfg:    Config{MaxPosition: 15},
			intent: schema.OrderIntent{Side: schema.OrderSideSell, Type: schema.OrderTypeLimit, Price: 50000, Qty: 10},
			state:  StateView{Position: 10},
			want:   ReasonNone,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(tc.cfg)
			got := e.Evaluate(tc.intent, testSymbol, tc.state)
			if got.Reason != tc.want {
				t.Fatalf("expected reason %s, got %s", tc.want, got.Reason)
			}
			if (tc.want == ReasonNone) != got.Allowed() {
				t.Fatalf("allowed mismatch for reason %s", got.Reason)
			}
		})
	}
}

func TestEvaluateRateLimit(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 2, OrderRateWindow: time.Second})
	base := time.Now().UnixNano()

	for i := 0; i < 2; i++ {
		if d := e.Evaluate(limitBuy(50000, 1), testSymbol, StateView{Now: base}); !d.Allowed() {
			t.Fatalf("order %d unexpectedly denied: %s", i, d.Reason)
		}
	}
	if d := e.Evaluate(limitBuy(50000, 1), testSymbol, StateView{Now: base}); d.Reason != ReasonRateLimit {
		t.Fatalf("expected rate limit denial, got %s", d.Reason)
	}

	// a new window resets the counter
	later := base + int64(2*time.Second)
	if d := e.Evaluate(limitBuy(50000, 1), testSymbol, StateView{Now: later}); !d.Allowed() {
		t.Fatalf("expected allow in new window, got %s", d.Reason)
	}
}
