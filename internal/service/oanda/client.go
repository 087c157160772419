package oanda

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/service/cache"
	xhttp "AxPredict/pkg/http"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/util"
)

const (
	sourceTag    = "oanda"
	fetchTimeout = 12 * time.Second
)

// granularities maps internal timeframes to OANDA granularity codes.
var granularities = map[domrepo.Timeframe]string{
	domrepo.TF1m:  "M1",
	domrepo.TF5m:  "M5",
	domrepo.TF15m: "M15",
	domrepo.TF1h:  "H1",
	domrepo.TF4h:  "H4",
}

// Client fetches mid-price candles from the OANDA v20 REST API. It is a soft
// source: without a token, or on any upstream rejection, it reports no data
// so the orchestrator can continue down the provider chain.
type Client struct {
	token   string
	baseURL string
	http    *xhttp.Client
	cache   *cache.CandleCache
	metrics domrepo.Metrics
	l       *applogger.Logger
}

type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func New(token, baseURL string, cc *cache.CandleCache, m domrepo.Metrics, l *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(fetchTimeout)),
		cache:   cc,
		metrics: m,
		l:       l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return sourceTag }

// Enabled reports whether the client holds an API token.
func (c *Client) Enabled() bool { return c.token != "" }

func (c *Client) Fetch(ctx context.Context, symbol models.SymbolRef, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	if !c.Enabled() {
		return nil, nil
	}
	gran, ok := granularities[tf]
	if !ok {
		return nil, nil
	}
	inst := Instrument(symbol.Name)

	key := cache.Key("oanda", inst, gran, limit)
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit(sourceTag)
		return cached, nil
	}

	var payload struct {
		Candles []struct {
			Time     string         `json:"time"`
			Volume   int64          `json:"volume"`
			Mid      *oandaMid      `json:"mid"`
			Midpoint *oandaMid      `json:"midpoint"`
		} `json:"candles"`
	}

	start := time.Now()
	err := c.http.GetJSON(ctx, &xhttp.RequestOptions{
		URL: fmt.Sprintf("%s/v3/instruments/%s/candles", c.baseURL, inst),
		QueryParams: map[string]string{
			"granularity": gran,
			"count":       strconv.Itoa(limit),
			"price":       "M",
		},
		Headers: map[string]string{
			"Authorization": "Bearer " + c.token,
		},
	}, &payload)
	c.metrics.ObserveFetchDuration(sourceTag, time.Since(start).Seconds())
	if err != nil {
		// Broker rejections (bad instrument, expired token) are not fatal to
		// the request; log and let the chain continue.
		c.metrics.RecordFetch(sourceTag, "error")
		c.l.Warn("oanda: candle request failed",
			applogger.String("instrument", inst),
			applogger.String("granularity", gran),
			applogger.Error(err),
		)
		return nil, nil
	}

	candles := make([]models.Candle, 0, len(payload.Candles))
	for _, row := range payload.Candles {
		ts, ok := util.ParseTime(row.Time)
		if !ok {
			continue
		}
		mid := row.Mid
		if mid == nil {
			mid = row.Midpoint
		}
		candles = append(candles, models.Candle{
			Time:   ts,
			Open:   mid.price("o"),
			High:   mid.price("h"),
			Low:    mid.price("l"),
			Close:  mid.price("c"),
			Volume: float64(row.Volume),
		})
	}
	candles = models.Normalize(candles)
	if len(candles) == 0 {
		c.metrics.RecordFetch(sourceTag, "empty")
		return nil, nil
	}

	c.cache.Set(key, candles)
	c.metrics.RecordFetch(sourceTag, "ok")
	return candles, nil
}

type oandaMid struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

func (m *oandaMid) price(field string) float64 {
	if m == nil {
		return math.NaN()
	}
	var raw string
	switch field {
	case "o":
		raw = m.O
	case "h":
		raw = m.H
	case "l":
		raw = m.L
	case "c":
		raw = m.C
	}
	if f, ok := util.ParseFloat(raw); ok {
		return f
	}
	return math.NaN()
}

// Instrument converts a broker symbol into OANDA's underscore form:
// "EURUSD" -> "EUR_USD", "eur/usd" -> "EUR_USD", "XAU_USD" stays as is.
func Instrument(name string) string {
	s := strings.ToUpper(name)
	s = strings.NewReplacer("-", "", "/", "").Replace(s)
	if !strings.Contains(s, "_") && len(s) > 3 {
		s = s[:3] + "_" + s[3:]
	}
	return s
}
