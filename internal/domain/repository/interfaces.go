package repository

import (
	"context"

	"AxPredict/internal/domain/models"
)

// CandleSource fetches candles for a symbol at a timeframe. A (nil, nil)
// return is the deliberate "no data" signal: the provider is unconfigured,
// rate-limited or returned no usable rows. Hard errors are reserved for
// unexpected failures the orchestrator converts into error-tagged
// predictions.
type CandleSource interface {
	// Name is the provenance tag recorded on predictions served from this
	// source.
	Name() string
	Fetch(ctx context.Context, symbol models.SymbolRef, tf Timeframe, limit int) ([]models.Candle, error)
}

// HistoryStore serves persisted 1-minute candles, newest-first capped at n,
// returned in ascending time order.
type HistoryStore interface {
	LatestCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error)
}

// Classifier is the narrow inference contract of a trained signal model.
type Classifier interface {
	// PredictProba returns one probability per class for a feature vector.
	PredictProba(features []float64) ([]float64, error)
	// Classes enumerates class identifiers in probability order.
	Classes() []int
}

// Strategy turns the derived feature rows of a series into a trading signal.
// Implementations must be deterministic for a fixed input.
type Strategy interface {
	Name() string
	Evaluate(candles []models.Candle, rows []models.FeatureRow) models.Signal
}

// PredictionPublisher forwards produced prediction batches downstream.
type PredictionPublisher interface {
	Publish(ctx context.Context, symbol string, preds []models.Prediction) error
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordFetch(source, outcome string)
	RecordCacheHit(source string)
	RecordPrediction(timeframe, label, strategy string)
	RecordError(kind string)
	ObserveFetchDuration(source string, seconds float64)
}
