package models

import (
	"math"
	"sort"
	"time"
)

// Candle represents one OHLCV sample for a fixed time bucket.
// Fields may hold NaN for values a provider did not supply; Normalize drops
// rows whose OHLC is not finite. Volume defaults to 0 when unknown.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether all four OHLC values are finite.
// The low <= open/close <= high invariant is deliberately not checked;
// upstream data may violate it and consumers must tolerate that.
func (c Candle) Valid() bool {
	return isFinite(c.Open) && isFinite(c.High) && isFinite(c.Low) && isFinite(c.Close)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Normalize returns a cleaned copy of the series: rows with non-finite OHLC
// dropped, NaN volume zeroed, sorted ascending by time, duplicate timestamps
// collapsed keeping the last occurrence. The input is never mutated.
func Normalize(candles []Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if !c.Valid() {
			continue
		}
		if math.IsNaN(c.Volume) || c.Volume < 0 {
			c.Volume = 0
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	dedup := out[:0]
	for _, c := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(c.Time) {
			dedup[n-1] = c
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

// LastClose returns the close of the final candle, or 0 for an empty series.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
