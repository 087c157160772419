package di

import (
	"fmt"

	domrepo "AxPredict/internal/domain/repository"
	"AxPredict/internal/handler/api"
	internalrepo "AxPredict/internal/repository"
	"AxPredict/internal/service/alphavantage"
	"AxPredict/internal/service/binance"
	"AxPredict/internal/service/cache"
	"AxPredict/internal/service/localdata"
	"AxPredict/internal/service/oanda"
	"AxPredict/internal/service/ratelimit"
	"AxPredict/internal/service/stream"
	"AxPredict/internal/services/features"
	"AxPredict/internal/services/signal"
	"AxPredict/internal/usecase"
	pkgch "AxPredict/pkg/clickhouse"
	"AxPredict/pkg/config"
	xhttp "AxPredict/pkg/http"
	pkgkafka "AxPredict/pkg/kafka"
	applogger "AxPredict/pkg/logger"
	"AxPredict/pkg/metrics"
	"AxPredict/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCandleCache creates the TTL candle cache, with a Redis second level
// when enabled.
func ProvideCandleCache(cfg *config.Config, l *applogger.Logger) (*cache.CandleCache, error) {
	if !cfg.Redis.Enabled {
		return cache.New(cfg.Predict.CacheTTL), nil
	}
	l2, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, l)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.New(cfg.Predict.CacheTTL, cache.WithRedisL2(l2)), nil
}

// ProvideExchangeSource creates the Binance REST adapter.
func ProvideExchangeSource(cc *cache.CandleCache, m domrepo.Metrics, l *applogger.Logger) *binance.Client {
	return binance.New(cc, m, l)
}

// ProvideBrokerSource creates the OANDA adapter. It stays in the chain even
// without a token; an unconfigured adapter reports no data.
func ProvideBrokerSource(cfg *config.Config, cc *cache.CandleCache, m domrepo.Metrics, l *applogger.Logger) *oanda.Client {
	return oanda.New(cfg.Oanda.Token, cfg.OandaAPIBase(), cc, m, l)
}

// ProvideMacroSource creates the AlphaVantage FX adapter.
func ProvideMacroSource(cfg *config.Config, cc *cache.CandleCache, m domrepo.Metrics, l *applogger.Logger) *alphavantage.Client {
	return alphavantage.New(cfg.AlphaVantage.APIKey, cc, m, l)
}

// ProvideLocalReader creates the CSV snapshot reader.
func ProvideLocalReader(cfg *config.Config, l *applogger.Logger) *localdata.Reader {
	return localdata.New(cfg.Predict.DataDir, l)
}

// ProvideStreamFeed creates the live kline feed, or nil when disabled.
func ProvideStreamFeed(cfg *config.Config, l *applogger.Logger) *stream.Feed {
	if !cfg.Stream.Enabled {
		return nil
	}
	return stream.NewFeed(stream.Config{
		URL:            cfg.Stream.URL,
		Symbols:        cfg.Stream.Symbols,
		ReconnectDelay: cfg.Stream.ReconnectDelay,
		PingInterval:   cfg.Stream.PingInterval,
		Depth:          cfg.Stream.Depth,
	}, l)
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when the
// history store is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.History.Host),
		pkgch.WithPort(cfg.History.Port),
		pkgch.WithDatabase(cfg.History.Database),
		pkgch.WithCredentials(cfg.History.User, cfg.History.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHistoryStore creates the persisted candle store when configured.
func ProvideHistoryStore(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.HistoryStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewCHCandleStore(client, cfg.History.Table, l)
}

// ProvideKafkaProducer creates the producer, or nil when publishing is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePredictionPublisher creates the Kafka publisher when a producer
// exists.
func ProvidePredictionPublisher(producer *pkgkafka.Producer, l *applogger.Logger) domrepo.PredictionPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, l)
}

// ProvideStrategy loads the trained model when both artifact paths are
// configured and readable; anything else runs the heuristic.
func ProvideStrategy(cfg *config.Config, l *applogger.Logger) domrepo.Strategy {
	if cfg.Predict.ModelPath == "" || cfg.Predict.MetaPath == "" {
		return signal.NewHeuristic()
	}
	clf, err := signal.LoadClassifier(cfg.Predict.ModelPath)
	if err != nil {
		l.Warn("model load failed, running heuristic", applogger.Error(err))
		return signal.NewHeuristic()
	}
	meta, err := signal.LoadMeta(cfg.Predict.MetaPath)
	if err != nil {
		l.Warn("model meta load failed, running heuristic", applogger.Error(err))
		return signal.NewHeuristic()
	}
	l.Info("model strategy loaded",
		applogger.String("model", cfg.Predict.ModelPath),
		applogger.Int("features", len(meta.Features)),
	)
	return signal.NewModelStrategy(clf, meta, l)
}

// ProvidePredictor assembles the orchestrator.
func ProvidePredictor(
	exchange *binance.Client,
	broker *oanda.Client,
	macro *alphavantage.Client,
	feed *stream.Feed,
	history domrepo.HistoryStore,
	local *localdata.Reader,
	strategy domrepo.Strategy,
	publisher domrepo.PredictionPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(usecase.Params{
		Exchange:  exchange,
		Broker:    broker,
		Macro:     macro,
		Feed:      feed,
		History:   history,
		Local:     local,
		Engine:    features.NewEngine(l),
		Strategy:  strategy,
		Fallback:  signal.NewHeuristic(),
		Publisher: publisher,
		Metrics:   m,
		Logger:    l,
	})
}

// ProvideHTTPHandler creates the API handler with per-IP rate limiting.
func ProvideHTTPHandler(predictor *usecase.Predictor, l *applogger.Logger) xhttp.Handler {
	return api.NewPredictHandler(predictor, ratelimit.New(), l)
}

// ProvideApp creates the application shell.
func ProvideApp(
	cfg *config.Config,
	handler xhttp.Handler,
	feed *stream.Feed,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, handler, feed, chClient, producer, l)
}
