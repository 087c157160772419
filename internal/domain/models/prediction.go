package models

// Signal labels.
const (
	LabelLong  = "long"
	LabelShort = "short"
	LabelNone  = "none"
)

// Signal is the output of one strategy evaluation: a directional label with
// confidence and entry/stop/target price levels. SL and TP are 0 for "none".
type Signal struct {
	Label      string
	Confidence float64
	Entry      float64
	SL         float64
	TP         float64
}

// Prediction is one per-timeframe result of a batch predict call.
// Source records provenance: the adapter, strategy or fallback that produced
// it, or "error:<message>" when processing the timeframe failed.
type Prediction struct {
	Timeframe  string  `json:"timeframe"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Entry      float64 `json:"entry"`
	SL         float64 `json:"sl"`
	TP         float64 `json:"tp"`
	Source     string  `json:"source"`
}

// ZeroPrediction returns a safe empty prediction for a timeframe.
func ZeroPrediction(timeframe, source string) Prediction {
	return Prediction{
		Timeframe: timeframe,
		Label:     LabelNone,
		Source:    source,
	}
}
