package models

import (
	"math"
	"time"
)

// Feature column names, in the order the trained model expects by default.
const (
	FeatRet1  = "ret_1"
	FeatEMA8  = "ema8"
	FeatEMA21 = "ema21"
	FeatEMA50 = "ema50"
	FeatRSI14 = "rsi14"
	FeatATR14 = "atr14"
	FeatStd5  = "std5"
	FeatMom5  = "mom5"
)

// FeatureRow is one candle augmented with derived indicator values.
// A NaN field means the value is undefined for that row.
type FeatureRow struct {
	Time  time.Time
	Close float64
	Ret1  float64
	EMA8  float64
	EMA21 float64
	EMA50 float64
	RSI14 float64
	ATR14 float64
	Std5  float64
	Mom5  float64
}

// Value returns the named feature, or (NaN, false) for an unknown column.
func (r FeatureRow) Value(name string) (float64, bool) {
	switch name {
	case FeatRet1:
		return r.Ret1, true
	case FeatEMA8:
		return r.EMA8, true
	case FeatEMA21:
		return r.EMA21, true
	case FeatEMA50:
		return r.EMA50, true
	case FeatRSI14:
		return r.RSI14, true
	case FeatATR14:
		return r.ATR14, true
	case FeatStd5:
		return r.Std5, true
	case FeatMom5:
		return r.Mom5, true
	}
	return math.NaN(), false
}

// Complete reports whether every derived value is defined.
func (r FeatureRow) Complete() bool {
	for _, v := range []float64{r.Ret1, r.EMA8, r.EMA21, r.EMA50, r.RSI14, r.ATR14, r.Std5, r.Mom5} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
