package signal

import (
	"math"
	"strconv"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	applogger "AxPredict/pkg/logger"
)

// ModelStrategy classifies the last feature row with a trained model and
// derives levels from the heuristic's ATR formula. Every failure mode falls
// back to the heuristic transparently; callers never see an error.
type ModelStrategy struct {
	clf      domrepo.Classifier
	meta     *Meta
	fallback *Heuristic
	l        *applogger.Logger
}

func NewModelStrategy(clf domrepo.Classifier, meta *Meta, l *applogger.Logger) *ModelStrategy {
	return &ModelStrategy{
		clf:      clf,
		meta:     meta,
		fallback: NewHeuristic(),
		l:        l,
	}
}

func (m *ModelStrategy) Name() string { return "model" }

func (m *ModelStrategy) Evaluate(candles []models.Candle, rows []models.FeatureRow) models.Signal {
	if m.clf == nil || m.meta == nil || len(m.meta.Features) == 0 || len(rows) == 0 {
		return m.fallback.Evaluate(candles, rows)
	}

	last := rows[len(rows)-1]

	// Feature vector in the metadata's declared column order. This is the
	// single place where undefined coerces to zero.
	vec := make([]float64, len(m.meta.Features))
	for i, name := range m.meta.Features {
		v, ok := last.Value(name)
		if !ok || math.IsNaN(v) {
			v = 0
		}
		vec[i] = v
	}

	probs, err := m.clf.PredictProba(vec)
	if err != nil || len(probs) == 0 {
		m.l.Warn("model inference failed, falling back to heuristic", applogger.Error(err))
		return m.fallback.Evaluate(candles, rows)
	}

	idx := argmax(probs)
	classes := m.clf.Classes()
	label := models.LabelNone
	if idx < len(classes) {
		if mapped, ok := m.meta.LabelMap[strconv.Itoa(classes[idx])]; ok {
			label = mapped
		}
	}

	lastClose := models.LastClose(candles)
	atr := volProxy(candles, last.ATR14)
	sl, tp := Levels(label, lastClose, atr)

	return models.Signal{
		Label:      label,
		Confidence: probs[idx],
		Entry:      lastClose,
		SL:         sl,
		TP:         tp,
	}
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
