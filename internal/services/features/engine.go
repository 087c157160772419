package features

import (
	"fmt"
	"math"

	"AxPredict/internal/domain/models"
	applogger "AxPredict/pkg/logger"

	talib "github.com/markcheno/go-talib"
)

// Warm-up lengths. Rows older than the slowest indicator are dropped.
const (
	spanFast   = 8
	spanMid    = 21
	spanSlow   = 50
	rsiPeriod  = 14
	atrPeriod  = 14
	stdWindow  = 5
	momPeriods = 5
)

// Engine derives the fixed indicator vector from a candle series. The
// primary computation path uses talib; a manual fallback with the same
// column semantics takes over automatically when the primary path panics.
type Engine struct {
	l *applogger.Logger
}

func NewEngine(l *applogger.Logger) *Engine {
	return &Engine{l: l}
}

// Derive returns one feature row per candle that has every indicator
// defined. Fewer than 3 input candles, or a series whose rows are all
// dropped by warm-up, yields an empty result. That is the defined
// "insufficient data" outcome, not an error.
func (e *Engine) Derive(series []models.Candle) []models.FeatureRow {
	if len(series) < 3 {
		return nil
	}

	cols, err := e.primary(series)
	if err != nil {
		e.l.Warn("talib feature path failed, using manual fallback", applogger.Error(err))
		cols = deriveManual(series)
	}
	return buildRows(series, cols)
}

type columns struct {
	ret1, ema8, ema21, ema50, rsi14, atr14, std5, mom5 []float64
}

func (e *Engine) primary(series []models.Candle) (cols columns, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("talib panic: %v", r)
		}
	}()
	cols = deriveTalib(series)
	return cols, nil
}

func deriveTalib(series []models.Candle) columns {
	closes, highs, lows := split(series)
	n := len(series)

	ema := func(span int) []float64 {
		if n < span {
			return nanSlice(n)
		}
		return mask(talib.Ema(closes, span), span-1)
	}

	cols := columns{
		ret1:  pctChange(closes),
		ema8:  ema(spanFast),
		ema21: ema(spanMid),
		ema50: ema(spanSlow),
		std5:  rollingStd(pctChange(closes), stdWindow),
		mom5:  momentum(closes, momPeriods),
	}
	if n > rsiPeriod {
		cols.rsi14 = mask(talib.Rsi(closes, rsiPeriod), rsiPeriod)
	} else {
		cols.rsi14 = nanSlice(n)
	}
	if n > atrPeriod {
		cols.atr14 = mask(talib.Atr(highs, lows, closes, atrPeriod), atrPeriod)
	} else {
		cols.atr14 = nanSlice(n)
	}
	return cols
}

func deriveManual(series []models.Candle) columns {
	closes, highs, lows := split(series)
	ret1 := pctChange(closes)
	return columns{
		ret1:  ret1,
		ema8:  emaManual(closes, spanFast),
		ema21: emaManual(closes, spanMid),
		ema50: emaManual(closes, spanSlow),
		rsi14: rsiManual(closes, rsiPeriod),
		atr14: atrManual(highs, lows, closes, atrPeriod),
		std5:  rollingStd(ret1, stdWindow),
		mom5:  momentum(closes, momPeriods),
	}
}

func buildRows(series []models.Candle, cols columns) []models.FeatureRow {
	rows := make([]models.FeatureRow, 0, len(series))
	for i, c := range series {
		row := models.FeatureRow{
			Time:  c.Time,
			Close: c.Close,
			Ret1:  cols.ret1[i],
			EMA8:  cols.ema8[i],
			EMA21: cols.ema21[i],
			EMA50: cols.ema50[i],
			RSI14: cols.rsi14[i],
			ATR14: cols.atr14[i],
			Std5:  cols.std5[i],
			Mom5:  cols.mom5[i],
		}
		if row.Complete() {
			rows = append(rows, row)
		}
	}
	return rows
}

func split(series []models.Candle) (closes, highs, lows []float64) {
	closes = make([]float64, len(series))
	highs = make([]float64, len(series))
	lows = make([]float64, len(series))
	for i, c := range series {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	return closes, highs, lows
}

// mask marks the first warmup entries as undefined. talib fills warm-up
// positions with zeros, which are indistinguishable from real values.
func mask(vals []float64, warmup int) []float64 {
	out := make([]float64, len(vals))
	copy(out, vals)
	for i := 0; i < warmup && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}
