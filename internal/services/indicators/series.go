package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// EMA is an exponential moving average seeded with the first defined input and
// smoothed by 2/(span+1). Values before the first defined input plus span-1 are NaN.
func EMA(in []float64, span int) []float64 {
	out := nanSeries(len(in))
	if span < 1 {
		return out
	}
	alpha := 2.0 / float64(span+1)

	start := -1
	for i, v := range in {
		if !math.IsNaN(v) {
			start = i
			break
		}
	}
	if start < 0 {
		return out
	}

	prev := in[start]
	for i := start; i < len(in); i++ {
		if i > start {
			prev = alpha*in[i] + (1-alpha)*prev
		}
		if i-start >= span-1 {
			out[i] = prev
		}
	}
	return out
}

// MACD returns the line, signal and histogram. The line is defined from index slow-1
// and the signal and histogram from slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	ef, es := EMA(closes, fast), EMA(closes, slow)
	line = nanSeries(n)
	for i := range closes {
		if !math.IsNaN(ef[i]) && !math.IsNaN(es[i]) {
			line[i] = ef[i] - es[i]
		}
	}
	sig = EMA(line, signal)
	hist = nanSeries(n)
	for i := range closes {
		if !math.IsNaN(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist
}

// RSI is the relative strength index with Wilder smoothing (alpha 1/window, no
// bias adjustment). Gains and losses start at zero on the first bar, so values are
// defined from index window-1. A window with no losses reads 100.
func RSI(closes []float64, window int) []float64 {
	out := nanSeries(len(closes))
	if window < 1 {
		return out
	}
	alpha := 1.0 / float64(window)

	var up, dn float64
	for i := range closes {
		var gain, loss float64
		if i > 0 {
			d := closes[i] - closes[i-1]
			if d > 0 {
				gain = d
			} else if d < 0 {
				loss = -d
			}
		}
		up = (1-alpha)*up + alpha*gain
		dn = (1-alpha)*dn + alpha*loss
		if i < window-1 {
			continue
		}
		if dn == 0 {
			out[i] = 100
		} else {
			out[i] = 100 - 100/(1+up/dn)
		}
	}
	return out
}

// OBV is on-balance volume. Volume counts as buying unless the close fell, so
// unchanged closes add to the total.
func OBV(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	total := 0.0
	for i := range closes {
		if i > 0 && closes[i] < closes[i-1] {
			total -= volumes[i]
		} else {
			total += volumes[i]
		}
		out[i] = total
	}
	return out
}

// PctChange returns (x[i]-x[i-k])/x[i-k] with NaN for the first k entries.
func PctChange(in []float64, k int) []float64 {
	out := nanSeries(len(in))
	for i := k; i < len(in); i++ {
		if in[i-k] != 0 {
			out[i] = (in[i] - in[i-k]) / in[i-k]
		}
	}
	return out
}

// RollingSampleStd is the rolling standard deviation with n-1 in the denominator.
// in may start with NaN values; the window begins at the first defined value.
func RollingSampleStd(in []float64, window int) []float64 {
	out := nanSeries(len(in))
	if window < 2 {
		return out
	}
	start := 0
	for start < len(in) && math.IsNaN(in[start]) {
		start++
	}
	if len(in)-start < window {
		return out
	}

	pop := talib.StdDev(in[start:], window, 1.0)
	scale := math.Sqrt(float64(window) / float64(window-1))
	for j := window - 1; j < len(pop); j++ {
		out[start+j] = pop[j] * scale
	}
	return out
}
