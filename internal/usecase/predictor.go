package usecase

import (
	"context"
	"fmt"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/service/localdata"
	"AxPredict/internal/service/stream"
	"AxPredict/internal/services/candles"
	"AxPredict/internal/services/features"
	applogger "AxPredict/pkg/logger"
)

// MinModelRows is the minimum series length for model inference. Shorter
// histories are served by the heuristic regardless of whether a model is
// loaded.
const MinModelRows = 50

const errorTagLimit = 120

// Predictor orchestrates the batch prediction pipeline: resolve a candle
// series through the provider chain, derive features, evaluate a strategy,
// and report per-timeframe results. One timeframe failing never fails the
// batch; the failed entry degrades to a zero prediction with an error tag.
type Predictor struct {
	exchange domrepo.CandleSource
	broker   domrepo.CandleSource
	macro    domrepo.CandleSource
	feed     *stream.Feed
	history  domrepo.HistoryStore
	local    *localdata.Reader

	engine    *features.Engine
	strategy  domrepo.Strategy
	fallback  domrepo.Strategy
	publisher domrepo.PredictionPublisher

	metrics domrepo.Metrics
	l       *applogger.Logger
}

// Params collects the predictor's dependencies. Feed, History, Local and
// Publisher are optional and skipped when nil.
type Params struct {
	Exchange domrepo.CandleSource
	Broker   domrepo.CandleSource
	Macro    domrepo.CandleSource
	Feed     *stream.Feed
	History  domrepo.HistoryStore
	Local    *localdata.Reader

	Engine    *features.Engine
	Strategy  domrepo.Strategy
	Fallback  domrepo.Strategy
	Publisher domrepo.PredictionPublisher

	Metrics domrepo.Metrics
	Logger  *applogger.Logger
}

func NewPredictor(p Params) *Predictor {
	return &Predictor{
		exchange:  p.Exchange,
		broker:    p.Broker,
		macro:     p.Macro,
		feed:      p.Feed,
		history:   p.History,
		local:     p.Local,
		engine:    p.Engine,
		strategy:  p.Strategy,
		fallback:  p.Fallback,
		publisher: p.Publisher,
		metrics:   p.Metrics,
		l:         p.Logger,
	}
}

// BatchPredict produces one prediction per requested timeframe, in request
// order. The request is assumed validated; unparseable timeframes degrade
// to error-tagged entries instead of failing the batch.
func (p *Predictor) BatchPredict(ctx context.Context, req *models.BatchRequest) *models.BatchResponse {
	sym := models.ParseSymbol(req.Symbol)

	preds := make([]models.Prediction, 0, len(req.Timeframes))
	for _, tfStr := range req.Timeframes {
		preds = append(preds, p.predictOne(ctx, sym, tfStr, req))
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, sym.Raw, preds); err != nil {
			p.metrics.RecordError("publish")
			p.l.Warn("prediction publish failed", applogger.Error(err))
		}
	}
	return &models.BatchResponse{Predictions: preds}
}

// predictOne isolates all per-timeframe failures, including panics.
func (p *Predictor) predictOne(ctx context.Context, sym models.SymbolRef, tfStr string, req *models.BatchRequest) (pred models.Prediction) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.RecordError("panic")
			p.l.Error("prediction panicked",
				applogger.String("symbol", sym.Raw),
				applogger.String("timeframe", tfStr),
				applogger.Any("panic", r),
			)
			pred = models.ZeroPrediction(tfStr, errorTag(fmt.Sprintf("panic: %v", r)))
		}
	}()

	tf, err := domrepo.ParseTimeframe(tfStr)
	if err != nil {
		return models.ZeroPrediction(tfStr, errorTag(err.Error()))
	}

	series, dataSource, err := p.collect(ctx, sym, tf, req)
	if err != nil {
		p.metrics.RecordError("fetch")
		p.l.Warn("candle resolution failed",
			applogger.String("symbol", sym.Raw),
			applogger.String("timeframe", tfStr),
			applogger.Error(err),
		)
		return models.ZeroPrediction(tfStr, errorTag(err.Error()))
	}
	if len(series) == 0 {
		return models.ZeroPrediction(tfStr, "no-data")
	}

	rows := p.engine.Derive(series)

	strat := p.strategy
	source := dataSource
	if len(series) < MinModelRows {
		// too little history for inference; the heuristic still produces a
		// usable signal and the source keeps the data provenance tag
		strat = p.fallback
	} else if strat.Name() == "model" {
		source = "model"
	}

	sig := strat.Evaluate(series, rows)
	p.metrics.RecordPrediction(tfStr, sig.Label, strat.Name())

	return models.Prediction{
		Timeframe:  tfStr,
		Label:      sig.Label,
		Confidence: sig.Confidence,
		Entry:      sig.Entry,
		SL:         sig.SL,
		TP:         sig.TP,
		Source:     source,
	}
}

// collect walks the provider chain and returns the first usable series with
// its provenance tag. An empty series with a nil error means every provider
// reported no data.
func (p *Predictor) collect(ctx context.Context, sym models.SymbolRef, tf domrepo.Timeframe, req *models.BatchRequest) ([]models.Candle, string, error) {
	// 1. client-supplied candles, exact timeframe first, then a 1m window
	// aggregated up
	if w, ok := req.Candles[string(tf)]; ok {
		if series := candles.FromWindow(w); len(series) > 0 {
			return tail(series, req.Limit), "client", nil
		}
	}
	if tf != domrepo.TF1m {
		if w, ok := req.Candles[string(domrepo.TF1m)]; ok {
			if series := candles.FromWindow(w); len(series) > 0 {
				agg, err := candles.Aggregate(series, tf)
				if err != nil {
					return nil, "", err
				}
				if len(agg) > 0 {
					return tail(agg, req.Limit), "client", nil
				}
			}
		}
	}

	// 2. warm exchange stream window
	if p.feed != nil && sym.Kind == models.SymbolExchange {
		if series, ok := p.fromFeed(sym, tf, req.Limit); ok {
			return series, "binance-ws", nil
		}
	}

	// 3. exchange REST; transport failures here are hard errors
	if p.exchange != nil && sym.Kind == models.SymbolExchange {
		series, err := p.exchange.Fetch(ctx, sym, tf, req.Limit)
		if err != nil {
			return nil, "", err
		}
		if len(series) > 0 {
			return series, p.exchange.Name(), nil
		}
	}

	// 4. broker REST, only for broker-tagged symbols; unconfigured or
	// rejected requests fall through
	if p.broker != nil && sym.Kind == models.SymbolBroker {
		series, err := p.broker.Fetch(ctx, sym, tf, req.Limit)
		if err != nil {
			return nil, "", err
		}
		if len(series) > 0 {
			return series, p.broker.Name(), nil
		}
	}

	// 5. macro FX provider for anything that looks like the macro instrument,
	// including broker-tagged gold without a broker token
	if p.macro != nil && sym.MacroCandidate() {
		series, err := p.macro.Fetch(ctx, sym, tf, req.Limit)
		if err != nil {
			return nil, "", err
		}
		if len(series) > 0 {
			return series, p.macro.Name(), nil
		}
	}

	// 6. persisted 1m history, best effort
	if p.history != nil {
		series, err := p.history.LatestCandles(ctx, sym.Raw, historyDepth(tf, req.Limit))
		if err != nil {
			p.metrics.RecordError("history")
			p.l.Warn("history lookup failed", applogger.Error(err))
		} else if len(series) > 0 {
			agg, err := candles.Aggregate(series, tf)
			if err != nil {
				return nil, "", err
			}
			if len(agg) > 0 {
				return tail(agg, req.Limit), "history", nil
			}
		}
	}

	// 7. local CSV snapshot
	if p.local != nil {
		series, file, err := p.local.Fetch(sym)
		if err != nil {
			return nil, "", err
		}
		if len(series) > 0 {
			agg, err := candles.Aggregate(series, tf)
			if err != nil {
				return nil, "", err
			}
			if len(agg) > 0 {
				return tail(agg, req.Limit), "local-csv:" + file, nil
			}
		}
	}

	return nil, "", nil
}

// fromFeed aggregates the live 1m window and only accepts it when enough
// buckets exist for inference; otherwise the REST chain takes over.
func (p *Predictor) fromFeed(sym models.SymbolRef, tf domrepo.Timeframe, limit int) ([]models.Candle, bool) {
	w := p.feed.Window(sym.Name)
	if len(w) == 0 {
		return nil, false
	}
	agg, err := candles.Aggregate(w, tf)
	if err != nil || len(agg) < MinModelRows {
		return nil, false
	}
	return tail(agg, limit), true
}

// historyDepth sizes the 1m history read so aggregation can still fill the
// requested number of target buckets.
func historyDepth(tf domrepo.Timeframe, limit int) int {
	mult := int(tf.Duration().Minutes())
	if mult < 1 {
		mult = 1
	}
	return limit * mult
}

func tail(series []models.Candle, limit int) []models.Candle {
	if limit > 0 && len(series) > limit {
		return series[len(series)-limit:]
	}
	return series
}

func errorTag(msg string) string {
	if len(msg) > errorTagLimit {
		msg = msg[:errorTagLimit]
	}
	return "error:" + msg
}
