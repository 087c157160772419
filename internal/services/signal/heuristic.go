package signal

import (
	"math"

	"AxPredict/internal/domain/models"
)

// Empirical constants carried over from the trained setup. The ATR
// multipliers fix a 1:2 risk-reward ratio; the std-dev substitute kicks in
// when ATR is undefined or zero.
const (
	ATRStopMult   = 1.2
	ATRTargetMult = 2.4
	StdATRMult    = 2.0
	VolFloor      = 1e-8

	baseConfidence = 0.55
	maxConfidence  = 0.95
	noneConfidence = 0.5
)

// Heuristic is the default strategy and the fallback whenever model
// inference is unavailable or fails. Deterministic for a fixed input.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Evaluate(candles []models.Candle, rows []models.FeatureRow) models.Signal {
	if len(candles) == 0 {
		return models.Signal{Label: models.LabelNone}
	}
	lastClose := models.LastClose(candles)
	if len(rows) == 0 {
		// features could not be computed at all
		return models.Signal{Label: models.LabelNone, Entry: lastClose}
	}

	last := rows[len(rows)-1]
	atr := volProxy(candles, last.ATR14)

	ema8, ema21, ema50 := last.EMA8, last.EMA21, last.EMA50
	rsi := last.RSI14
	if math.IsNaN(rsi) {
		rsi = 50
	}

	label := models.LabelNone
	switch {
	case ema8 > ema21 && ema21 > ema50 && rsi > 50:
		label = models.LabelLong
	case ema8 < ema21 && ema21 < ema50 && rsi < 50:
		label = models.LabelShort
	}

	sl, tp := Levels(label, lastClose, atr)

	conf := noneConfidence
	if label != models.LabelNone {
		denom := ema50
		if denom == 0 {
			denom = 1
		}
		sep := math.Abs(ema8-ema50) / denom
		conf = math.Min(maxConfidence, baseConfidence+sep*5+math.Abs(rsi-50)/50*0.3)
	}

	return models.Signal{
		Label:      label,
		Confidence: conf,
		Entry:      lastClose,
		SL:         sl,
		TP:         tp,
	}
}

// volProxy returns a usable volatility estimate: the given ATR when defined
// and positive, else twice the std-dev of recent close differences, clamped
// to a small positive floor.
func volProxy(candles []models.Candle, atr float64) float64 {
	if !math.IsNaN(atr) && atr != 0 {
		return atr
	}
	return math.Max(StdATRMult*stdDiff(candles), VolFloor)
}

// Levels derives stop and target prices from the entry and a volatility
// estimate. Both are 0 for a non-directional label.
func Levels(label string, entry, atr float64) (sl, tp float64) {
	switch label {
	case models.LabelLong:
		return entry - ATRStopMult*atr, entry + ATRTargetMult*atr
	case models.LabelShort:
		return entry + ATRStopMult*atr, entry - ATRTargetMult*atr
	}
	return 0, 0
}

func stdDiff(candles []models.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	n := len(candles) - 1
	sum := 0.0
	for i := 1; i < len(candles); i++ {
		sum += candles[i].Close - candles[i-1].Close
	}
	mean := sum / float64(n)
	var ss float64
	for i := 1; i < len(candles); i++ {
		d := candles[i].Close - candles[i-1].Close - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}
