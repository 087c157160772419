package candles

import (
	"fmt"

	"AxPredict/internal/domain/models"
	domrepo "AxPredict/internal/domain/repository"
)

// Aggregate resamples a 1-minute (or finer) ordered series into the target
// timeframe. Per output bucket: open = first open, high = max high,
// low = min low, close = last close, volume = sum. Buckets with no input
// rows are absent, never zero-filled. Requesting 1m returns a copy so the
// caller never shares a backing array with its input.
//
// An unsupported target timeframe is a programming error and fails fast.
func Aggregate(series []models.Candle, target domrepo.Timeframe) ([]models.Candle, error) {
	d := target.Duration()
	if d == 0 {
		return nil, fmt.Errorf("unsupported timeframe for aggregation: %q", target)
	}

	if target == domrepo.TF1m {
		out := make([]models.Candle, len(series))
		copy(out, series)
		return out, nil
	}

	out := make([]models.Candle, 0, len(series)/int(d.Minutes())+1)
	for _, c := range series {
		bucket := c.Time.UTC().Truncate(d)
		if n := len(out); n > 0 && out[n-1].Time.Equal(bucket) {
			cur := &out[n-1]
			if c.High > cur.High {
				cur.High = c.High
			}
			if c.Low < cur.Low {
				cur.Low = c.Low
			}
			cur.Close = c.Close
			cur.Volume += c.Volume
			continue
		}
		out = append(out, models.Candle{
			Time:   bucket,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}
	return out, nil
}
