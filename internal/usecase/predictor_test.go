package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/service/binance"
	"AxPredict/internal/service/cache"
	"AxPredict/internal/services/features"
	"AxPredict/internal/services/signal"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/metrics"
)

type stubSource struct {
	name    string
	candles []models.Candle
	err     error
	calls   int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context, models.SymbolRef, domrepo.Timeframe, int) ([]models.Candle, error) {
	s.calls++
	return s.candles, s.err
}

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

func newPredictor(p Params) *Predictor {
	if p.Engine == nil {
		p.Engine = features.NewEngine(applogger.Nop())
	}
	if p.Strategy == nil {
		p.Strategy = signal.NewHeuristic()
	}
	if p.Fallback == nil {
		p.Fallback = signal.NewHeuristic()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewNop()
	}
	if p.Logger == nil {
		p.Logger = applogger.Nop()
	}
	return NewPredictor(p)
}

func req(symbol string, tfs ...string) *models.BatchRequest {
	return &models.BatchRequest{Symbol: symbol, Timeframes: tfs, Limit: 300}
}

func TestBatchPredictFromExchangeREST(t *testing.T) {
	var body strings.Builder
	body.WriteString("[")
	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		if i > 0 {
			body.WriteString(",")
		}
		price := 100.0 + float64(i)
		fmt.Fprintf(&body, `[%d, "%.1f", "%.1f", "%.1f", "%.1f", "5"]`,
			base.Add(time.Duration(i)*time.Minute).UnixMilli(),
			price-0.5, price+1, price-1, price)
	}
	body.WriteString("]")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body.String()))
	}))
	defer srv.Close()

	exch := binance.New(cache.New(15*time.Second), metrics.NewNop(), applogger.Nop(),
		binance.WithBaseURL(srv.URL))
	p := newPredictor(Params{Exchange: exch})

	resp := p.BatchPredict(context.Background(), req("BINANCE:BTCUSDT", "1m"))
	if len(resp.Predictions) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(resp.Predictions))
	}
	pred := resp.Predictions[0]
	if pred.Source != "binance-rest" {
		t.Fatalf("expected exchange provenance, got %q", pred.Source)
	}
	if pred.Label != models.LabelLong {
		t.Fatalf("uptrend must yield long, got %q", pred.Label)
	}
	if !(pred.SL < pred.Entry && pred.Entry < pred.TP) {
		t.Fatalf("bad levels: %+v", pred)
	}
}

func TestBatchPredictClientCandlesTakePrecedence(t *testing.T) {
	series := trendSeries(120, 1)
	window := models.CandleWindow{}
	for _, c := range series {
		window.Timestamp = append(window.Timestamp, c.Time.Format(time.RFC3339))
		window.Open = append(window.Open, c.Open)
		window.High = append(window.High, c.High)
		window.Low = append(window.Low, c.Low)
		window.Close = append(window.Close, c.Close)
		window.Volume = append(window.Volume, c.Volume)
	}

	exch := &stubSource{name: "binance-rest", candles: trendSeries(120, -1)}
	p := newPredictor(Params{Exchange: exch})

	r := req("BINANCE:BTCUSDT", "1m")
	r.Candles = map[string]models.CandleWindow{"1m": window}
	resp := p.BatchPredict(context.Background(), r)

	pred := resp.Predictions[0]
	if pred.Source != "client" {
		t.Fatalf("client candles must win, got source %q", pred.Source)
	}
	if exch.calls != 0 {
		t.Fatalf("exchange must not be called when client candles suffice")
	}
	if pred.Label != models.LabelLong {
		t.Fatalf("client uptrend must yield long, got %q", pred.Label)
	}
}

func TestBatchPredictClientOneMinuteAggregatesUp(t *testing.T) {
	series := trendSeries(600, 0.5)
	window := models.CandleWindow{}
	for _, c := range series {
		window.Timestamp = append(window.Timestamp, c.Time.Format(time.RFC3339))
		window.Open = append(window.Open, c.Open)
		window.High = append(window.High, c.High)
		window.Low = append(window.Low, c.Low)
		window.Close = append(window.Close, c.Close)
	}

	p := newPredictor(Params{})
	r := req("ANY", "5m")
	r.Candles = map[string]models.CandleWindow{"1m": window}
	resp := p.BatchPredict(context.Background(), r)

	pred := resp.Predictions[0]
	if pred.Source != "client" {
		t.Fatalf("aggregated client window must keep client provenance, got %q", pred.Source)
	}
	if pred.Label != models.LabelLong {
		t.Fatalf("expected long from aggregated uptrend, got %q", pred.Label)
	}
}

func TestBatchPredictBrokerWithoutTokenFallsToMacro(t *testing.T) {
	// an unconfigured broker reports no data, and a broker-tagged gold symbol
	// is still a macro candidate
	broker := &stubSource{name: "oanda"}
	macro := &stubSource{name: "alphavantage", candles: trendSeries(120, 1)}
	p := newPredictor(Params{Broker: broker, Macro: macro})

	resp := p.BatchPredict(context.Background(), req("OANDA:XAU_USD", "1h"))
	pred := resp.Predictions[0]
	if pred.Source != "alphavantage" {
		t.Fatalf("expected macro fallthrough, got %q", pred.Source)
	}
	if broker.calls != 1 {
		t.Fatalf("broker must be consulted first, calls=%d", broker.calls)
	}
}

func TestBatchPredictExchangeErrorIsIsolated(t *testing.T) {
	exch := &stubSource{name: "binance-rest", err: errors.New("connection refused")}
	p := newPredictor(Params{Exchange: exch})

	resp := p.BatchPredict(context.Background(), req("BINANCE:BTCUSDT", "1m", "5m"))
	if len(resp.Predictions) != 2 {
		t.Fatalf("every requested timeframe must be answered, got %d", len(resp.Predictions))
	}
	for _, pred := range resp.Predictions {
		if !strings.HasPrefix(pred.Source, "error:") {
			t.Fatalf("expected error tag, got %q", pred.Source)
		}
		if pred.Label != models.LabelNone || pred.Confidence != 0 {
			t.Fatalf("failed timeframe must degrade to a zero prediction: %+v", pred)
		}
	}
}

func TestBatchPredictErrorTagTruncated(t *testing.T) {
	exch := &stubSource{name: "binance-rest", err: errors.New(strings.Repeat("x", 500))}
	p := newPredictor(Params{Exchange: exch})

	resp := p.BatchPredict(context.Background(), req("BINANCE:BTCUSDT", "1m"))
	src := resp.Predictions[0].Source
	if len(src) != len("error:")+120 {
		t.Fatalf("error tag must truncate the message to 120 chars, got %d", len(src))
	}
}

func TestBatchPredictNoProvidersIsNoData(t *testing.T) {
	p := newPredictor(Params{})
	resp := p.BatchPredict(context.Background(), req("UNKNOWN", "1h"))
	pred := resp.Predictions[0]
	if pred.Source != "no-data" {
		t.Fatalf("expected no-data, got %q", pred.Source)
	}
	if pred.Label != models.LabelNone || pred.Entry != 0 {
		t.Fatalf("no-data must be a zero prediction: %+v", pred)
	}
}

type modelStub struct{}

func (modelStub) Name() string { return "model" }

func (modelStub) Evaluate(candles []models.Candle, _ []models.FeatureRow) models.Signal {
	return models.Signal{Label: models.LabelLong, Confidence: 0.9, Entry: models.LastClose(candles)}
}

func TestBatchPredictModelSourceTag(t *testing.T) {
	exch := &stubSource{name: "binance-rest", candles: trendSeries(120, 1)}
	p := newPredictor(Params{Exchange: exch, Strategy: modelStub{}})

	resp := p.BatchPredict(context.Background(), req("BINANCE:BTCUSDT", "1m"))
	if got := resp.Predictions[0].Source; got != "model" {
		t.Fatalf("model inference must be tagged as model, got %q", got)
	}
}

func TestBatchPredictShortHistorySkipsModel(t *testing.T) {
	exch := &stubSource{name: "binance-rest", candles: trendSeries(30, 1)}
	p := newPredictor(Params{Exchange: exch, Strategy: modelStub{}})

	resp := p.BatchPredict(context.Background(), req("BINANCE:BTCUSDT", "1m"))
	pred := resp.Predictions[0]
	if pred.Source != "binance-rest" {
		t.Fatalf("short history must keep data provenance, got %q", pred.Source)
	}
	// the 30-row series is below every indicator's warm-up horizon, so the
	// heuristic answers with the no-features shape
	if pred.Label == models.LabelLong && pred.Confidence == 0.9 {
		t.Fatalf("model must not run on short history")
	}
}

type stubHistory struct {
	candles []models.Candle
	gotN    int
}

func (s *stubHistory) LatestCandles(_ context.Context, _ string, n int) ([]models.Candle, error) {
	s.gotN = n
	return s.candles, nil
}

func TestBatchPredictHistoryAggregates(t *testing.T) {
	hist := &stubHistory{candles: trendSeries(600, 0.5)}
	p := newPredictor(Params{History: hist})

	resp := p.BatchPredict(context.Background(), req("EURUSD", "5m"))
	pred := resp.Predictions[0]
	if pred.Source != "history" {
		t.Fatalf("expected history provenance, got %q", pred.Source)
	}
	if hist.gotN != 300*5 {
		t.Fatalf("history read must cover limit*multiplier minutes, got %d", hist.gotN)
	}
}

type stubPublisher struct {
	symbol string
	preds  []models.Prediction
}

func (s *stubPublisher) Publish(_ context.Context, symbol string, preds []models.Prediction) error {
	s.symbol = symbol
	s.preds = preds
	return nil
}

func TestBatchPredictPublishesBatch(t *testing.T) {
	pub := &stubPublisher{}
	exch := &stubSource{name: "binance-rest", candles: trendSeries(120, 1)}
	p := newPredictor(Params{Exchange: exch, Publisher: pub})

	p.BatchPredict(context.Background(), req("BINANCE:BTCUSDT", "1m", "5m"))
	if pub.symbol != "BINANCE:BTCUSDT" || len(pub.preds) != 2 {
		t.Fatalf("batch must be published once per request: %q %d", pub.symbol, len(pub.preds))
	}
}
