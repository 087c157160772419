package alphavantage

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/service/cache"
	"AxPredict/internal/services/candles"
	xhttp "AxPredict/pkg/http"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/util"
)

const (
	defaultBaseURL = "https://www.alphavantage.co"
	sourceTag      = "alphavantage"
	fetchTimeout   = 12 * time.Second
)

// intervals maps internal timeframes to the FX_INTRADAY interval parameter.
// AlphaVantage tops out at hourly bars, so 4h is served by fetching 60min
// data and aggregating locally.
var intervals = map[domrepo.Timeframe]string{
	domrepo.TF1m:  "1min",
	domrepo.TF5m:  "5min",
	domrepo.TF15m: "15min",
	domrepo.TF1h:  "60min",
	domrepo.TF4h:  "60min",
}

// Client fetches intraday FX candles from AlphaVantage. Like the broker
// adapter it is a soft source: missing key, throttle notes, and upstream
// errors all report no data.
type Client struct {
	apiKey  string
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

func New(apiKey string, cc *cache.CandleCache, m domrepo.Metrics, l *applogger.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
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

// Enabled reports whether the client holds an API key.
func (c *Client) Enabled() bool { return c.apiKey != "" }

func (c *Client) Fetch(ctx context.Context, symbol models.SymbolRef, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	if !c.Enabled() {
		return nil, nil
	}
	interval, ok := intervals[tf]
	if !ok {
		return nil, nil
	}
	from, to, ok := SplitPair(symbol.Name)
	if !ok {
		c.l.Warn("alphavantage: cannot split symbol into currency pair",
			applogger.String("symbol", symbol.Name))
		return nil, nil
	}

	key := cache.Key("alphavantage", from+to, string(tf), limit)
	if cached, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit(sourceTag)
		return cached, nil
	}

	var payload map[string]json.RawMessage
	start := time.Now()
	err := c.http.GetJSON(ctx, &xhttp.RequestOptions{
		URL: c.baseURL + "/query",
		QueryParams: map[string]string{
			"function":    "FX_INTRADAY",
			"from_symbol": from,
			"to_symbol":   to,
			"interval":    interval,
			"outputsize":  "full",
			"apikey":      c.apiKey,
		},
	}, &payload)
	c.metrics.ObserveFetchDuration(sourceTag, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordFetch(sourceTag, "error")
		c.l.Warn("alphavantage: request failed", applogger.Error(err))
		return nil, nil
	}

	// Throttle responses come back 200 with a "Note" body; bad symbols with
	// an "Error Message".
	for _, k := range []string{"Note", "Error Message", "Information"} {
		if msg, found := payload[k]; found {
			c.metrics.RecordFetch(sourceTag, "rejected")
			c.l.Warn("alphavantage: upstream rejected request",
				applogger.String("reason", string(msg)))
			return nil, nil
		}
	}

	series := findSeries(payload)
	if series == nil {
		c.metrics.RecordFetch(sourceTag, "empty")
		return nil, nil
	}

	out := make([]models.Candle, 0, len(series))
	for stamp, bar := range series {
		ts, ok := util.ParseTime(stamp)
		if !ok {
			continue
		}
		out = append(out, models.Candle{
			Time:   ts,
			Open:   barField(bar, "1. open"),
			High:   barField(bar, "2. high"),
			Low:    barField(bar, "3. low"),
			Close:  barField(bar, "4. close"),
			Volume: 0,
		})
	}
	out = models.Normalize(out)

	if tf == domrepo.TF4h {
		agg, err := candles.Aggregate(out, domrepo.TF4h)
		if err != nil {
			return nil, nil
		}
		out = agg
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	if len(out) == 0 {
		c.metrics.RecordFetch(sourceTag, "empty")
		return nil, nil
	}

	c.cache.Set(key, out)
	c.metrics.RecordFetch(sourceTag, "ok")
	return out, nil
}

// findSeries locates the time-series object; its key embeds the interval
// ("Time Series FX (60min)"), so match on the stable prefix.
func findSeries(payload map[string]json.RawMessage) map[string]map[string]string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.HasPrefix(k, "Time Series") {
			continue
		}
		var series map[string]map[string]string
		if err := json.Unmarshal(payload[k], &series); err != nil {
			return nil
		}
		return series
	}
	return nil
}

func barField(bar map[string]string, field string) float64 {
	if f, ok := util.ParseFloat(bar[field]); ok {
		return f
	}
	return math.NaN()
}

// SplitPair breaks a macro symbol into from/to currency codes:
// "XAUUSD" -> ("XAU", "USD"), "XAU_USD" likewise.
func SplitPair(name string) (from, to string, ok bool) {
	s := strings.ToUpper(name)
	s = strings.NewReplacer("_", "", "-", "", "/", "").Replace(s)
	if len(s) < 6 {
		return "", "", false
	}
	return s[:3], s[3:], true
}
