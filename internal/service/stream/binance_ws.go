package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"AxPredict/internal/domain/models"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/util"
)

const (
	defaultReconnectDelay = 5 * time.Second
	defaultPingInterval   = 30 * time.Second
	defaultDepth          = 1000
	writeDeadline         = 10 * time.Second
)

// Feed maintains a live 1-minute candle window per subscribed symbol from the
// Binance kline stream. It serves as a warm in-memory source for exchange
// symbols so cold REST fetches can be skipped while the stream is healthy.
//
// Only closed klines (the "x" flag) enter the window; the in-progress bar is
// never exposed.
type Feed struct {
	url            string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	depth          int

	mu  sync.RWMutex
	buf map[string][]models.Candle

	l *applogger.Logger
}

type Config struct {
	URL            string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	Depth          int
}

func NewFeed(cfg Config, l *applogger.Logger) *Feed {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.Depth <= 0 {
		cfg.Depth = defaultDepth
	}
	return &Feed{
		url:            cfg.URL,
		symbols:        cfg.Symbols,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		depth:          cfg.Depth,
		buf:            make(map[string][]models.Candle),
		l:              l,
	}
}

// Run connects and consumes klines until ctx is cancelled, reconnecting with
// a fixed delay on any failure. Intended to run in its own goroutine.
func (f *Feed) Run(ctx context.Context) {
	if len(f.symbols) == 0 {
		f.l.Info("stream: no symbols configured, feed idle")
		return
	}
	for {
		if err := f.runOnce(ctx); err != nil {
			f.l.Warn("stream: session ended", applogger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *Feed) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.l.Info("stream: connected",
		applogger.String("url", f.url),
		applogger.Int("symbols", len(f.symbols)),
	)

	done := make(chan struct{})
	defer close(done)
	go f.pingLoop(ctx, conn, done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(msg)
	}
}

func (f *Feed) subscribe(conn *websocket.Conn) error {
	params := make([]string, 0, len(f.symbols))
	for _, s := range f.symbols {
		params = append(params, strings.ToLower(s)+"@kline_1m")
	}
	sub := map[string]any{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteJSON(sub)
}

func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type klineEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Kline  struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		Closed   bool   `json:"x"`
	} `json:"k"`
}

func (f *Feed) handleMessage(msg []byte) {
	var ev klineEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return
	}
	if ev.Event != "kline" || !ev.Kline.Closed {
		return
	}

	open, ok1 := util.ParseFloat(ev.Kline.Open)
	high, ok2 := util.ParseFloat(ev.Kline.High)
	low, ok3 := util.ParseFloat(ev.Kline.Low)
	cls, ok4 := util.ParseFloat(ev.Kline.Close)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}
	vol, _ := util.ParseFloat(ev.Kline.Volume)

	c := models.Candle{
		Time:   time.UnixMilli(ev.Kline.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  cls,
		Volume: vol,
	}
	f.append(strings.ToUpper(ev.Symbol), c)
}

func (f *Feed) append(symbol string, c models.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := f.buf[symbol]
	if n := len(w); n > 0 && w[n-1].Time.Equal(c.Time) {
		w[n-1] = c
	} else {
		w = append(w, c)
	}
	if len(w) > f.depth {
		w = w[len(w)-f.depth:]
	}
	f.buf[symbol] = w
}

// Window returns a copy of the rolling 1-minute window for symbol. The
// returned slice is safe to mutate.
func (f *Feed) Window(symbol string) []models.Candle {
	f.mu.RLock()
	defer f.mu.RUnlock()

	w := f.buf[strings.ToUpper(symbol)]
	if len(w) == 0 {
		return nil
	}
	out := make([]models.Candle, len(w))
	copy(out, w)
	return out
}
