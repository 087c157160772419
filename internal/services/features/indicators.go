package features

import "math"

// Manual indicator implementations, used when the talib path fails. They
// agree with the primary path on column semantics and warm-up masking but
// not necessarily bit-for-bit.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// pctChange returns 1-step fractional returns, NaN at index 0 and wherever
// the previous close is zero.
func pctChange(closes []float64) []float64 {
	out := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

// emaManual computes an exponentially weighted mean with smoothing factor
// 2/(span+1), seeded at the first close. The first span-1 values are masked
// as undefined so both computation paths share one warm-up shape.
func emaManual(closes []float64, span int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	ema := closes[0]
	for i := 1; i < len(closes); i++ {
		ema = alpha*closes[i] + (1-alpha)*ema
		if i >= span-1 {
			out[i] = ema
		}
	}
	if span == 1 {
		out[0] = closes[0]
	}
	return out
}

// rsiManual computes RSI from rolling means of positive and negative deltas.
// A zero average loss yields RSI 100.
func rsiManual(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) <= period {
		return out
	}
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - closes[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		if loss == 0 {
			out[i] = 100
			continue
		}
		rs := gain / loss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// atrManual computes the rolling mean of the true range, where the true
// range stretches high and low to the previous close.
func atrManual(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n <= period {
		return out
	}
	tr := nanSlice(n)
	for i := 1; i < n; i++ {
		hi := math.Max(highs[i], closes[i-1])
		lo := math.Min(lows[i], closes[i-1])
		tr[i] = hi - lo
	}
	for i := period; i < n; i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// rollingStd computes the sample standard deviation over a trailing window.
// Windows containing any undefined value stay undefined.
func rollingStd(vals []float64, window int) []float64 {
	out := nanSlice(len(vals))
	for i := window - 1; i < len(vals); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(window)
		var ss float64
		for j := i - window + 1; j <= i; j++ {
			d := vals[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// momentum returns close minus close k periods prior.
func momentum(closes []float64, k int) []float64 {
	out := nanSlice(len(closes))
	for i := k; i < len(closes); i++ {
		out[i] = closes[i] - closes[i-k]
	}
	return out
}
