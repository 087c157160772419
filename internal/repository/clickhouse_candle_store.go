package repository

import (
	"context"
	"fmt"
	"time"

	"AxPredict/internal/domain/models"
	pkgch "AxPredict/pkg/clickhouse"
	applogger "AxPredict/pkg/logger"
)

// CHCandleStore reads persisted 1-minute candles from ClickHouse. It backs
// the history supplement in the provider chain and is only wired when the
// history section of the config is enabled.
type CHCandleStore struct {
	client *pkgch.Client
	table  string
	l      *applogger.Logger
}

func NewCHCandleStore(client *pkgch.Client, table string, l *applogger.Logger) *CHCandleStore {
	return &CHCandleStore{client: client, table: table, l: l}
}

// LatestCandles returns up to n most recent rows for symbol in ascending
// time order.
func (s *CHCandleStore) LatestCandles(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	query := fmt.Sprintf(`
		SELECT bucket, open, high, low, close, vol
		FROM %s
		WHERE symbol = ?
		ORDER BY bucket DESC
		LIMIT ?`, s.table)

	rows, err := s.client.DB().QueryContext(ctx, query, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var (
			bucket time.Time
			c      models.Candle
		)
		if err := rows.Scan(&bucket, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		c.Time = bucket.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}

	// newest-first from the query, callers expect ascending
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
