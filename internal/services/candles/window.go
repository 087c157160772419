package candles

import (
	"math"

	"AxPredict/internal/domain/models"
	"AxPredict/pkg/util"
)

// FromWindow converts client-supplied parallel arrays into a normalized
// candle series. Rows whose timestamp cannot be parsed are skipped; missing
// volume entries default to 0. Array lengths are reconciled to the shortest
// of the OHLC columns.
func FromWindow(w models.CandleWindow) []models.Candle {
	n := len(w.Timestamp)
	for _, l := range []int{len(w.Open), len(w.High), len(w.Low), len(w.Close)} {
		if l < n {
			n = l
		}
	}

	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		t, ok := util.ParseTime(w.Timestamp[i])
		if !ok {
			continue
		}
		c := models.Candle{
			Time:  t,
			Open:  w.Open[i],
			High:  w.High[i],
			Low:   w.Low[i],
			Close: w.Close[i],
		}
		if i < len(w.Volume) {
			c.Volume = w.Volume[i]
		}
		if math.IsNaN(c.Volume) {
			c.Volume = 0
		}
		out = append(out, c)
	}
	return models.Normalize(out)
}
