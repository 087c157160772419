package signal

import (
	"math"
	"testing"
	"time"

	"AxPredict/internal/domain/models"
	"AxPredict/internal/services/features"
	applogger "AxPredict/pkg/logger"
)

func trendSeries(n int, step float64) []models.Candle {
	start := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += step
		out = append(out, models.Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   price - step/2,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 10,
		})
	}
	return out
}

func deriveFor(t *testing.T, series []models.Candle) []models.FeatureRow {
	t.Helper()
	return features.NewEngine(applogger.Nop()).Derive(series)
}

func TestHeuristicLongOnUptrend(t *testing.T) {
	series := trendSeries(120, 1)
	rows := deriveFor(t, series)

	sig := NewHeuristic().Evaluate(series, rows)
	if sig.Label != models.LabelLong {
		t.Fatalf("expected long, got %s", sig.Label)
	}
	if !(sig.SL < sig.Entry && sig.Entry < sig.TP) {
		t.Fatalf("expected sl < entry < tp, got %v %v %v", sig.SL, sig.Entry, sig.TP)
	}
	if sig.Confidence < 0.55 || sig.Confidence > 0.95 {
		t.Fatalf("directional confidence out of range: %v", sig.Confidence)
	}
	// fixed 1:2 risk-reward
	risk := sig.Entry - sig.SL
	reward := sig.TP - sig.Entry
	if math.Abs(reward-2*risk) > 1e-9 {
		t.Fatalf("expected 1:2 risk-reward, risk=%v reward=%v", risk, reward)
	}
}

func TestHeuristicShortOnDowntrend(t *testing.T) {
	series := trendSeries(120, -1)
	rows := deriveFor(t, series)

	sig := NewHeuristic().Evaluate(series, rows)
	if sig.Label != models.LabelShort {
		t.Fatalf("expected short, got %s", sig.Label)
	}
	if !(sig.TP < sig.Entry && sig.Entry < sig.SL) {
		t.Fatalf("expected tp < entry < sl, got %v %v %v", sig.TP, sig.Entry, sig.SL)
	}
}

func TestHeuristicDeterministic(t *testing.T) {
	series := trendSeries(120, 0.3)
	rows := deriveFor(t, series)

	h := NewHeuristic()
	a := h.Evaluate(series, rows)
	b := h.Evaluate(series, rows)
	if a != b {
		t.Fatalf("heuristic must be deterministic: %+v vs %+v", a, b)
	}
}

func TestHeuristicNoFeatures(t *testing.T) {
	series := trendSeries(10, 1)

	sig := NewHeuristic().Evaluate(series, nil)
	if sig.Label != models.LabelNone {
		t.Fatalf("expected none, got %s", sig.Label)
	}
	if sig.Confidence != 0 {
		t.Fatalf("confidence must be 0 when features are unavailable, got %v", sig.Confidence)
	}
	if sig.Entry != models.LastClose(series) {
		t.Fatalf("entry must be last close, got %v", sig.Entry)
	}
	if sig.SL != 0 || sig.TP != 0 {
		t.Fatalf("levels must be 0, got %v %v", sig.SL, sig.TP)
	}
}

func TestHeuristicEmptySeries(t *testing.T) {
	sig := NewHeuristic().Evaluate(nil, nil)
	if sig.Label != models.LabelNone || sig.Entry != 0 {
		t.Fatalf("expected zero signal, got %+v", sig)
	}
}

type stubClassifier struct {
	probs   []float64
	classes []int
	err     error
}

func (s *stubClassifier) PredictProba([]float64) ([]float64, error) { return s.probs, s.err }
func (s *stubClassifier) Classes() []int                            { return s.classes }

func testMeta() *Meta {
	return &Meta{
		Features: []string{
			models.FeatRet1, models.FeatEMA8, models.FeatEMA21, models.FeatEMA50,
			models.FeatRSI14, models.FeatATR14, models.FeatStd5, models.FeatMom5,
		},
		LabelMap: map[string]string{"0": "none", "1": "long", "2": "short"},
	}
}

func TestModelStrategyMapsArgmaxClass(t *testing.T) {
	series := trendSeries(120, 1)
	rows := deriveFor(t, series)

	clf := &stubClassifier{probs: []float64{0.1, 0.7, 0.2}, classes: []int{0, 1, 2}}
	m := NewModelStrategy(clf, testMeta(), applogger.Nop())

	sig := m.Evaluate(series, rows)
	if sig.Label != models.LabelLong {
		t.Fatalf("expected long from class 1, got %s", sig.Label)
	}
	if sig.Confidence != 0.7 {
		t.Fatalf("expected argmax probability, got %v", sig.Confidence)
	}
	if !(sig.SL < sig.Entry && sig.Entry < sig.TP) {
		t.Fatalf("levels must follow label direction: %+v", sig)
	}
}

func TestModelStrategyUnmappedClassIsNone(t *testing.T) {
	series := trendSeries(120, 1)
	rows := deriveFor(t, series)

	clf := &stubClassifier{probs: []float64{1}, classes: []int{9}}
	m := NewModelStrategy(clf, testMeta(), applogger.Nop())

	sig := m.Evaluate(series, rows)
	if sig.Label != models.LabelNone {
		t.Fatalf("unmapped class must map to none, got %s", sig.Label)
	}
	if sig.SL != 0 || sig.TP != 0 {
		t.Fatalf("none label carries zero levels, got %+v", sig)
	}
}

func TestModelStrategyFallsBackOnError(t *testing.T) {
	series := trendSeries(120, 1)
	rows := deriveFor(t, series)

	clf := &stubClassifier{err: errFake}
	m := NewModelStrategy(clf, testMeta(), applogger.Nop())

	got := m.Evaluate(series, rows)
	want := NewHeuristic().Evaluate(series, rows)
	if got != want {
		t.Fatalf("inference failure must yield the heuristic signal: %+v vs %+v", got, want)
	}
}

var errFake = &fakeError{}

type fakeError struct{}

func (*fakeError) Error() string { return "inference unavailable" }

func TestLogisticClassifierSoftmax(t *testing.T) {
	c := &LogisticClassifier{
		Coef:      [][]float64{{1, 0}, {0, 1}, {0, 0}},
		Intercept: []float64{0, 0, 0},
		ClassList: []int{0, 1, 2},
	}
	probs, err := c.PredictProba([]float64{2, 0})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(probs) != 3 {
		t.Fatalf("expected 3 probabilities, got %d", len(probs))
	}
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities must sum to 1, got %v", sum)
	}
	if argmax(probs) != 0 {
		t.Fatalf("expected class 0 to dominate, got %d", argmax(probs))
	}
}

func TestLogisticClassifierDimensionMismatch(t *testing.T) {
	c := &LogisticClassifier{
		Coef:      [][]float64{{1, 0}},
		Intercept: []float64{0},
		ClassList: []int{0},
	}
	if _, err := c.PredictProba([]float64{1, 2, 3}); err == nil {
		t.Fatalf("expected error for wrong vector length")
	}
}
