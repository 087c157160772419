package binance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/service/cache"
	xhttp "AxPredict/pkg/http"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/util"
)

const (
	defaultBaseURL = "https://api.binance.com"
	sourceTag      = "binance-rest"
	fetchTimeout   = 10 * time.Second
)

// Client fetches klines from the Binance public REST API. All five supported
// timeframes are native granularities upstream, so no local aggregation is
// needed. Unlike the token-gated providers, transport failures here are hard
// errors; the orchestrator converts them into error-tagged predictions.
type Client struct {
	baseURL string
	http    *xhttp.Client
	cache   *cache.CandleCache
	metrics domrepo.Metrics
	l       *applogger.Logger
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func New(cc *cache.CandleCache, m domrepo.Metrics, l *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
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

func (c *Client) Fetch(ctx context.Context, symbol models.SymbolRef, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	key := cache.Key("binance", symbol.Name, string(tf), limit)
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit(sourceTag)
		return cached, nil
	}

	start := time.Now()
	var rows [][]any
	err := c.http.GetJSON(ctx, &xhttp.RequestOptions{
		URL: c.baseURL + "/api/v3/klines",
		QueryParams: map[string]string{
			"symbol":   symbol.Name,
			"interval": string(tf),
			"limit":    strconv.Itoa(limit),
		},
	}, &rows)
	c.metrics.ObserveFetchDuration(sourceTag, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordFetch(sourceTag, "error")
		return nil, fmt.Errorf("binance klines: %w", err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		cd, ok := parseKline(row)
		if !ok {
			continue
		}
		candles = append(candles, cd)
	}
	candles = models.Normalize(candles)
	if len(candles) == 0 {
		c.metrics.RecordFetch(sourceTag, "empty")
		return nil, nil
	}

	c.cache.Set(key, candles)
	c.metrics.RecordFetch(sourceTag, "ok")
	c.l.Debug("binance: fetched candles",
		applogger.String("symbol", symbol.Name),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(candles)),
	)
	return candles, nil
}

// parseKline decodes one kline array:
// [openTime, open, high, low, close, volume, closeTime, ...]
// openTime is a JSON number in milliseconds, prices are strings.
func parseKline(row []any) (models.Candle, bool) {
	if len(row) < 6 {
		return models.Candle{}, false
	}
	ms, ok := row[0].(float64)
	if !ok {
		return models.Candle{}, false
	}

	num := func(v any) float64 {
		switch x := v.(type) {
		case string:
			if f, ok := util.ParseFloat(x); ok {
				return f
			}
		case float64:
			return x
		}
		return math.NaN()
	}

	c := models.Candle{
		Time:   time.UnixMilli(int64(ms)).UTC(),
		Open:   num(row[1]),
		High:   num(row[2]),
		Low:    num(row[3]),
		Close:  num(row[4]),
		Volume: num(row[5]),
	}
	return c, true
}
