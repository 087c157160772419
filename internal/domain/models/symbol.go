package models

import "strings"

// SymbolKind tags which provider family a requested symbol belongs to.
// Parsed once at the orchestrator boundary so adapter selection is a total
// match over a closed set instead of repeated prefix checks.
type SymbolKind int

const (
	SymbolGeneric SymbolKind = iota
	SymbolExchange
	SymbolBroker
	SymbolMacro
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolExchange:
		return "exchange"
	case SymbolBroker:
		return "broker"
	case SymbolMacro:
		return "macro"
	}
	return "generic"
}

// SymbolRef is a parsed symbol reference.
type SymbolRef struct {
	Kind SymbolKind
	Raw  string // original request symbol, trimmed
	Name string // instrument part without the provider prefix
	// macroCandidate is set when the instrument looks like the supported
	// macro-FX instrument regardless of Kind, so a broker-tagged gold symbol
	// can still fall through to the macro provider.
	macroCandidate bool
}

// MacroCandidate reports whether the macro-FX provider may serve the symbol.
func (s SymbolRef) MacroCandidate() bool {
	return s.macroCandidate || s.Kind == SymbolMacro
}

// ParseSymbol parses a request symbol like "BINANCE:BTCUSDT", "OANDA:XAU_USD",
// "ALPHA:XAUUSD" or a bare instrument name.
func ParseSymbol(raw string) SymbolRef {
	raw = strings.TrimSpace(raw)
	upper := strings.ToUpper(raw)

	name := raw
	if i := strings.Index(raw, ":"); i >= 0 {
		name = raw[i+1:]
	}

	ref := SymbolRef{
		Raw:            raw,
		Name:           name,
		macroCandidate: strings.Contains(upper, "XAU"),
	}

	switch {
	case strings.HasPrefix(upper, "BINANCE:"):
		ref.Kind = SymbolExchange
	case strings.HasPrefix(upper, "OANDA:"):
		ref.Kind = SymbolBroker
	case strings.HasPrefix(upper, "ALPHA:") || ref.macroCandidate:
		ref.Kind = SymbolMacro
	default:
		ref.Kind = SymbolGeneric
	}

	return ref
}

// FileStem returns the symbol formatted for local data file names,
// e.g. "BINANCE:BTCUSDT" -> "BINANCE_BTCUSDT".
func (s SymbolRef) FileStem() string {
	return strings.ReplaceAll(s.Raw, ":", "_")
}
