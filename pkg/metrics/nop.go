package metrics

// NopRecorder discards all measurements. Used in tests.
type NopRecorder struct{}

func NewNop() *NopRecorder { return &NopRecorder{} }

func (*NopRecorder) RecordFetch(string, string)            {}
func (*NopRecorder) RecordCacheHit(string)                 {}
func (*NopRecorder) RecordPrediction(string, string, string) {}
func (*NopRecorder) RecordError(string)                    {}
func (*NopRecorder) ObserveFetchDuration(string, float64)  {}
