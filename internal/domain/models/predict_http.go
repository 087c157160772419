package models

// Requests and responses for the predict HTTP endpoint. Defined in domain for
// consistency and reuse.

// CandleWindow carries client-supplied candles for one timeframe as parallel
// arrays. Volume is optional and defaults to zeros.
type CandleWindow struct {
	Timestamp []string  `json:"timestamp" validate:"required,min=1"`
	Open      []float64 `json:"open" validate:"required"`
	High      []float64 `json:"high" validate:"required"`
	Low       []float64 `json:"low" validate:"required"`
	Close     []float64 `json:"close" validate:"required"`
	Volume    []float64 `json:"volume,omitempty"`
}

// BatchRequest is the body of POST /batch_predict. Any timeframe value
// outside the supported set fails validation before any fetch work begins.
type BatchRequest struct {
	Symbol     string                  `json:"symbol" validate:"required"`
	Timeframes []string                `json:"timeframes" validate:"required,min=1,dive,oneof=1m 5m 15m 1h 4h"`
	Candles    map[string]CandleWindow `json:"candles,omitempty"`
	Limit      int                     `json:"limit" default:"300" validate:"gte=10,lte=1000"`
}

// BatchResponse carries one prediction per requested timeframe, in request
// order, even when a timeframe degraded to a zero-valued prediction.
type BatchResponse struct {
	Predictions []Prediction `json:"predictions"`
}
