package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/service/cache"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/metrics"
)

const klinesBody = `[
	[1700000000000, "100.0", "105.0", "99.0", "104.0", "12.5", 1700000059999],
	[1700000060000, "104.0", "106.0", "103.0", "105.5", "8.25", 1700000119999]
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(cache.New(15*time.Second), metrics.NewNop(), applogger.Nop(), WithBaseURL(srv.URL))
	return c, srv
}

func TestFetchParsesKlines(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(klinesBody))
	})

	sym := models.ParseSymbol("BINANCE:BTCUSDT")
	candles, err := c.Fetch(context.Background(), sym, domrepo.TF1m, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	first := candles[0]
	if first.Open != 100 || first.High != 105 || first.Low != 99 || first.Close != 104 {
		t.Fatalf("wrong OHLC: %+v", first)
	}
	if first.Volume != 12.5 {
		t.Fatalf("wrong volume: %v", first.Volume)
	}
	if !first.Time.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("wrong timestamp: %v", first.Time)
	}
	for _, want := range []string{"symbol=BTCUSDT", "interval=1m", "limit=2"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestFetchServesFromCache(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(klinesBody))
	})

	sym := models.ParseSymbol("BINANCE:BTCUSDT")
	if _, err := c.Fetch(context.Background(), sym, domrepo.TF1m, 2); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.Fetch(context.Background(), sym, domrepo.TF1m, 2); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}

func TestFetchPropagatesUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	})

	sym := models.ParseSymbol("BINANCE:NOPE")
	if _, err := c.Fetch(context.Background(), sym, domrepo.TF1m, 10); err == nil {
		t.Fatalf("expected error for upstream 400")
	}
}

func TestFetchSkipsMalformedRows(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			["not-a-number", "1", "2", "0.5", "1.5", "1"],
			[1700000000000, "100.0", "105.0", "99.0", "104.0", "12.5"]
		]`))
	})

	sym := models.ParseSymbol("BINANCE:BTCUSDT")
	candles, err := c.Fetch(context.Background(), sym, domrepo.TF1m, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected malformed row dropped, got %d candles", len(candles))
	}
}
