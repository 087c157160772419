package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"AxPredict/internal/domain/models"
	"AxPredict/internal/service/ratelimit"
	"AxPredict/internal/services/features"
	"AxPredict/internal/services/signal"
	"AxPredict/internal/usecase"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/metrics"
)

func newTestHandler(limiter *ratelimit.Limiter) (*PredictHandler, *echo.Echo) {
	predictor := usecase.NewPredictor(usecase.Params{
		Engine:   features.NewEngine(applogger.Nop()),
		Strategy: signal.NewHeuristic(),
		Fallback: signal.NewHeuristic(),
		Metrics:  metrics.NewNop(),
		Logger:   applogger.Nop(),
	})
	h := NewPredictHandler(predictor, limiter, applogger.Nop())
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func clientWindowJSON(n int) string {
	start := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	var ts, open, high, low, cls []string
	price := 100.0
	for i := 0; i < n; i++ {
		price++
		ts = append(ts, fmt.Sprintf("%q", start.Add(time.Duration(i)*time.Minute).Format(time.RFC3339)))
		open = append(open, fmt.Sprintf("%.1f", price-0.5))
		high = append(high, fmt.Sprintf("%.1f", price+1))
		low = append(low, fmt.Sprintf("%.1f", price-1))
		cls = append(cls, fmt.Sprintf("%.1f", price))
	}
	return fmt.Sprintf(`{"timestamp":[%s],"open":[%s],"high":[%s],"low":[%s],"close":[%s]}`,
		strings.Join(ts, ","), strings.Join(open, ","), strings.Join(high, ","),
		strings.Join(low, ","), strings.Join(cls, ","))
}

func TestBatchPredictRejectsUnknownTimeframe(t *testing.T) {
	_, e := newTestHandler(nil)

	rec := doJSON(e, http.MethodPost, "/batch_predict",
		`{"symbol":"BINANCE:BTCUSDT","timeframes":["1m","2h"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown timeframe must fail the whole request, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ERR_ONEOF") {
		t.Fatalf("expected oneof validation error, body: %s", rec.Body.String())
	}
}

func TestBatchPredictRequiresSymbol(t *testing.T) {
	_, e := newTestHandler(nil)

	rec := doJSON(e, http.MethodPost, "/batch_predict", `{"timeframes":["1m"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing symbol must be rejected, got %d", rec.Code)
	}
}

func TestBatchPredictWithClientCandles(t *testing.T) {
	_, e := newTestHandler(nil)

	body := fmt.Sprintf(`{"symbol":"ANY","timeframes":["1m","5m"],"candles":{"1m":%s}}`,
		clientWindowJSON(600))
	rec := doJSON(e, http.MethodPost, "/batch_predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data models.BatchResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(env.Data.Predictions) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(env.Data.Predictions))
	}
	for i, tf := range []string{"1m", "5m"} {
		pred := env.Data.Predictions[i]
		if pred.Timeframe != tf {
			t.Fatalf("predictions must preserve request order: %+v", env.Data.Predictions)
		}
		if pred.Source != "client" {
			t.Fatalf("expected client provenance, got %q", pred.Source)
		}
		if pred.Label != models.LabelLong {
			t.Fatalf("uptrend must yield long, got %q", pred.Label)
		}
	}
}

func TestBatchPredictLimitDefaulted(t *testing.T) {
	_, e := newTestHandler(nil)

	// limit omitted entirely; defaults fill 300, which passes gte=10
	body := fmt.Sprintf(`{"symbol":"ANY","timeframes":["1m"],"candles":{"1m":%s}}`,
		clientWindowJSON(60))
	if rec := doJSON(e, http.MethodPost, "/batch_predict", body); rec.Code != http.StatusOK {
		t.Fatalf("omitted limit must default, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBatchPredictLimitBounds(t *testing.T) {
	_, e := newTestHandler(nil)

	rec := doJSON(e, http.MethodPost, "/batch_predict",
		`{"symbol":"ANY","timeframes":["1m"],"limit":5000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("limit above bound must be rejected, got %d", rec.Code)
	}
}

func TestBatchPredictRateLimited(t *testing.T) {
	now := time.Now()
	limiter := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))
	_, e := newTestHandler(limiter)

	body := `{"symbol":"ANY","timeframes":["1m"]}`
	var last int
	for i := 0; i < rateCapacity+1; i++ {
		last = doJSON(e, http.MethodPost, "/batch_predict", body).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting the bucket, got %d", last)
	}
}

func TestRootReportsTimeframes(t *testing.T) {
	_, e := newTestHandler(nil)

	rec := doJSON(e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, tf := range []string{"1m", "5m", "15m", "1h", "4h"} {
		if !strings.Contains(rec.Body.String(), tf) {
			t.Fatalf("root must list timeframe %s, body: %s", tf, rec.Body.String())
		}
	}
}

func TestPredictDemoEndToEnd(t *testing.T) {
	_, e := newTestHandler(nil)

	rec := doJSON(e, http.MethodGet, "/predict_demo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data models.BatchResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(env.Data.Predictions) != 3 {
		t.Fatalf("demo must answer all its timeframes, got %d", len(env.Data.Predictions))
	}
	for _, pred := range env.Data.Predictions {
		if pred.Source != "client" {
			t.Fatalf("demo runs on synthetic client candles, got source %q", pred.Source)
		}
	}
}
