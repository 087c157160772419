package repository

import (
	"fmt"
	"time"
)

// Timeframe is a supported candle bucket width.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// SupportedTimeframes lists all accepted timeframes in ascending width.
var SupportedTimeframes = []Timeframe{TF1m, TF5m, TF15m, TF1h, TF4h}

// ParseTimeframe validates a request timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	for _, known := range SupportedTimeframes {
		if tf == known {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe: %q", s)
}

// Duration returns the bucket width.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	}
	return 0
}
