package models

import (
	"math"
	"testing"
	"time"
)

func TestParseSymbolKinds(t *testing.T) {
	cases := []struct {
		raw  string
		kind SymbolKind
		name string
	}{
		{"BINANCE:BTCUSDT", SymbolExchange, "BTCUSDT"},
		{"binance:ethusdt", SymbolExchange, "ethusdt"},
		{"OANDA:EUR_USD", SymbolBroker, "EUR_USD"},
		{"ALPHA:EURUSD", SymbolMacro, "EURUSD"},
		{"XAUUSD", SymbolMacro, "XAUUSD"},
		{"BTCUSDT", SymbolGeneric, "BTCUSDT"},
	}
	for _, tc := range cases {
		got := ParseSymbol(tc.raw)
		if got.Kind != tc.kind {
			t.Errorf("ParseSymbol(%q).Kind = %v, want %v", tc.raw, got.Kind, tc.kind)
		}
		if got.Name != tc.name {
			t.Errorf("ParseSymbol(%q).Name = %q, want %q", tc.raw, got.Name, tc.name)
		}
	}
}

func TestParseSymbolBrokerGoldIsMacroCandidate(t *testing.T) {
	ref := ParseSymbol("OANDA:XAU_USD")
	if ref.Kind != SymbolBroker {
		t.Fatalf("expected broker kind, got %v", ref.Kind)
	}
	if !ref.MacroCandidate() {
		t.Fatalf("broker-tagged gold must remain a macro candidate")
	}

	if ParseSymbol("OANDA:EUR_USD").MacroCandidate() {
		t.Fatalf("non-gold broker symbol must not be a macro candidate")
	}
}

func TestFileStem(t *testing.T) {
	if got := ParseSymbol("BINANCE:BTCUSDT").FileStem(); got != "BINANCE_BTCUSDT" {
		t.Fatalf("FileStem = %q", got)
	}
}

func TestNormalizeDropsSortsDedups(t *testing.T) {
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	in := []Candle{
		{Time: base.Add(2 * time.Minute), Open: 3, High: 4, Low: 2, Close: 3.5, Volume: 1},
		{Time: base, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: math.NaN()},
		{Time: base.Add(time.Minute), Open: math.NaN(), High: 2, Low: 1, Close: 2},
		{Time: base, Open: 1.1, High: 2.1, Low: 0.6, Close: 1.6, Volume: 2},
	}

	got := Normalize(in)
	if len(got) != 2 {
		t.Fatalf("expected NaN-OHLC row dropped and duplicate collapsed, got %d rows", len(got))
	}
	if !got[0].Time.Equal(base) || !got[1].Time.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("expected ascending order, got %v %v", got[0].Time, got[1].Time)
	}
	// duplicate timestamp keeps the last occurrence
	if got[0].Close != 1.6 {
		t.Fatalf("dedup must keep the last row, got close %v", got[0].Close)
	}
	if got[0].Volume != 2 {
		t.Fatalf("unexpected volume %v", got[0].Volume)
	}
}

func TestNormalizeZeroesBadVolume(t *testing.T) {
	base := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	got := Normalize([]Candle{
		{Time: base, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: math.NaN()},
		{Time: base.Add(time.Minute), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: -3},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	for i, c := range got {
		if c.Volume != 0 {
			t.Fatalf("row %d: bad volume must coerce to 0, got %v", i, c.Volume)
		}
	}
}
