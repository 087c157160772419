package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AxPredict/internal/domain/models"
	applogger "AxPredict/pkg/logger"
)

// messageProducer is the slice of pkg/kafka.Producer the publisher needs.
type messageProducer interface {
	Publish(ctx context.Context, key, value []byte) error
}

// KafkaPredictionPublisher forwards finished prediction batches to a Kafka
// topic, keyed by symbol so one instrument's stream stays ordered within a
// partition.
type KafkaPredictionPublisher struct {
	producer messageProducer
	l        *applogger.Logger
}

func NewKafkaPredictionPublisher(producer messageProducer, l *applogger.Logger) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, l: l}
}

type predictionEnvelope struct {
	Symbol      string              `json:"symbol"`
	ProducedAt  time.Time           `json:"produced_at"`
	Predictions []models.Prediction `json:"predictions"`
}

func (p *KafkaPredictionPublisher) Publish(ctx context.Context, symbol string, preds []models.Prediction) error {
	payload, err := json.Marshal(predictionEnvelope{
		Symbol:      symbol,
		ProducedAt:  time.Now().UTC(),
		Predictions: preds,
	})
	if err != nil {
		return fmt.Errorf("marshal prediction envelope: %w", err)
	}
	if err := p.producer.Publish(ctx, []byte(symbol), payload); err != nil {
		return fmt.Errorf("publish predictions: %w", err)
	}
	p.l.Debug("published prediction batch",
		applogger.String("symbol", symbol),
		applogger.Int("predictions", len(preds)),
	)
	return nil
}
