package schema

import "testing"

func TestNotionalAmount(t *testing.T) {
	cases := []struct {
		name     string
		price    Price
		qty      Quantity
		scale    Scale
		want     Amount
		overflow bool
	}{
		{name: "whole quantity", price: 60000, qty: 10, scale: 1, want: 60000},
		{name: "partial quantity", price: 60010, qty: 4, scale: 1, want: 24004},
		{name: "zero quantity", price: 60000, qty: 0, scale: 1, want: 0},
		{name: "sell side negative", price: 50000, qty: -6, scale: 1, want: -30000},
		{name: "no scale", price: 7, qty: 3, scale: 0, want: 21},
		{name: "overflow", price: Price(maxInt64), qty: 2, scale: 0, overflow: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, overflow := NotionalAmount(tc.price, tc.qty, tc.scale)
			if overflow != tc.overflow {
				t.Fatalf("overflow = %v, want %v", overflow, tc.overflow)
			}
			if !overflow && got != tc.want {
				t.Fatalf("amount = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWeightedAvgPrice(t *testing.T) {
	cases := []struct {
		name   string
		oldAvg Price
		oldQty int64
		price  Price
		qty    int64
		want   Price
	}{
		{name: "first fill", oldAvg: 0, oldQty: 0, price: 60010, qty: 4, want: 60010},
		{name: "second fill", oldAvg: 60010, oldQty: 4, price: 60020, qty: 6, want: 60016},
		{name: "short side", oldAvg: 50000, oldQty: -2, price: 50010, qty: -2, want: 50005},
		{name: "empty", oldAvg: 1234, oldQty: 0, price: 0, qty: 0, want: 1234},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, overflow := WeightedAvgPrice(tc.oldAvg, tc.oldQty, tc.price, tc.qty)
			if overflow {
				t.Fatal("unexpected overflow")
			}
			if got != tc.want {
				t.Fatalf("avg = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()
	venue, err := reg.AddVenue("paper")
	if err != nil {
		t.Fatal(err)
	}
	base, err := reg.AddAsset("BTC", 8)
	if err != nil {
		t.Fatal(err)
	}
	quote, err := reg.AddAsset("USD", 2)
	if err != nil {
		t.Fatal(err)
	}
	sym, err := reg.AddSymbol("BTC-PERP", venue, base, quote, ScaleSpec{PriceScale: 2, QuantityScale: 8})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := reg.AddVenue("paper"); err == nil {
		t.Fatal("expected duplicate venue error")
	}
	if _, err := reg.AddSymbol("BTC-PERP", venue, base, quote, ScaleSpec{}); err == nil {
		t.Fatal("expected duplicate symbol error")
	}
	if _, err := reg.AddSymbol("ETH-PERP", VenueID(99), base, quote, ScaleSpec{}); err == nil {
		t.Fatal("expected unknown venue error")
	}

	id, ok := reg.SymbolIDByName("BTC-PERP", venue)
	if !ok || id != sym {
		t.Fatalf("SymbolIDByName = (%d, %v), want (%d, true)", id, ok, sym)
	}
	s, ok := reg.Symbol(sym)
	if !ok || s.Base != base || s.Quote != quote {
		t.Fatalf("Symbol(%d) = (%+v, %v)", sym, s, ok)
	}
	if _, ok := reg.Symbol(0); ok {
		t.Fatal("zero id should not resolve")
	}
}
