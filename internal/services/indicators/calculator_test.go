package indicators

import (
	"math"
	"testing"
	"time"

	"SPPredict/internal/domain/models"
)

func makeBars(closes []float64) []models.Bar {
	start := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c - 1,
			High:      c + 5,
			Low:       c - 5,
			Close:     c,
			Volume:    1_000_000 + float64(i%7)*10_000,
		}
	}
	return bars
}

func linearCloses(n int, from, to float64) []float64 {
	out := make([]float64, n)
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

// wavyCloses is deterministic but not monotonic, so every indicator gets exercised.
func wavyCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		out[i] = 4500 + 0.8*x + 60*math.Sin(x/7) + 25*math.Cos(x/3)
	}
	return out
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestSMA200EqualsMeanOfLast200(t *testing.T) {
	closes := wavyCloses(260)
	s := NewCalculator(nil).Calculate(makeBars(closes))
	if !s.Indicators {
		t.Fatalf("expected indicators")
	}
	last, _ := s.Last()

	sum := 0.0
	for _, c := range closes[len(closes)-200:] {
		sum += c
	}
	if want := sum / 200; !near(last.SMA200, want, 1e-6) {
		t.Fatalf("sma200 = %v, want %v", last.SMA200, want)
	}
	if !math.IsNaN(s.Rows[198].SMA200) || math.IsNaN(s.Rows[199].SMA200) {
		t.Fatalf("sma200 warm-up wrong: %v %v", s.Rows[198].SMA200, s.Rows[199].SMA200)
	}
}

func TestLinearUptrend(t *testing.T) {
	s := NewCalculator(nil).Calculate(makeBars(linearCloses(300, 4000, 5000)))
	last, _ := s.Last()

	if !(last.RSI > 70) {
		t.Fatalf("rsi = %v, want > 70", last.RSI)
	}
	if !(last.MACDHist > 0) {
		t.Fatalf("macd histogram = %v, want > 0", last.MACDHist)
	}
	if !(last.SMA10 > last.SMA50 && last.SMA50 > last.SMA200) {
		t.Fatalf("sma ordering broken: %v %v %v", last.SMA10, last.SMA50, last.SMA200)
	}
	if !(last.Ret1D > 0 && last.Ret5D > last.Ret1D) {
		t.Fatalf("returns: %v %v", last.Ret1D, last.Ret5D)
	}
}

func TestWarmupIsNaN(t *testing.T) {
	s := NewCalculator(nil).Calculate(makeBars(wavyCloses(120)))
	rows := s.Rows

	checks := []struct {
		name  string
		get   func(models.IndicatorRow) float64
		first int
	}{
		{"rsi", func(r models.IndicatorRow) float64 { return r.RSI }, 13},
		{"macd", func(r models.IndicatorRow) float64 { return r.MACD }, 25},
		{"macd_signal", func(r models.IndicatorRow) float64 { return r.MACDSignal }, 33},
		{"macd_hist", func(r models.IndicatorRow) float64 { return r.MACDHist }, 33},
		{"sma10", func(r models.IndicatorRow) float64 { return r.SMA10 }, 9},
		{"sma50", func(r models.IndicatorRow) float64 { return r.SMA50 }, 49},
		{"bb_upper", func(r models.IndicatorRow) float64 { return r.BBUpper }, 19},
		{"bb_width", func(r models.IndicatorRow) float64 { return r.BBWidth }, 19},
		{"adx", func(r models.IndicatorRow) float64 { return r.ADX }, 27},
		{"obv", func(r models.IndicatorRow) float64 { return r.OBV }, 0},
		{"ret_1d", func(r models.IndicatorRow) float64 { return r.Ret1D }, 1},
		{"ret_5d", func(r models.IndicatorRow) float64 { return r.Ret5D }, 5},
		{"vol_20", func(r models.IndicatorRow) float64 { return r.Vol20 }, 20},
	}
	for _, c := range checks {
		for i := 0; i < c.first; i++ {
			if v := c.get(rows[i]); !math.IsNaN(v) {
				t.Fatalf("%s[%d] = %v, want NaN", c.name, i, v)
			}
		}
		if v := c.get(rows[c.first]); math.IsNaN(v) {
			t.Fatalf("%s[%d] is NaN, want defined", c.name, c.first)
		}
	}
	for i := range rows {
		if !math.IsNaN(rows[i].SMA200) {
			t.Fatalf("sma200 must be undefined on 120 bars")
		}
	}
}

func TestNoLookAhead(t *testing.T) {
	closes := wavyCloses(240)
	full := NewCalculator(nil).Calculate(makeBars(closes))

	for _, k := range []int{60, 150, 239} {
		prefix := NewCalculator(nil).Calculate(makeBars(closes[:k+1]))
		a, b := full.Rows[k], prefix.Rows[k]
		pairs := [][2]float64{
			{a.RSI, b.RSI}, {a.MACD, b.MACD}, {a.MACDSignal, b.MACDSignal},
			{a.SMA20, b.SMA20}, {a.SMA100, b.SMA100}, {a.BBUpper, b.BBUpper},
			{a.ADX, b.ADX}, {a.OBV, b.OBV}, {a.Vol20, b.Vol20},
		}
		for j, p := range pairs {
			if math.IsNaN(p[0]) != math.IsNaN(p[1]) || (!math.IsNaN(p[0]) && !near(p[0], p[1], 1e-6)) {
				t.Fatalf("row %d field %d differs: %v vs %v", k, j, p[0], p[1])
			}
		}
	}
}

func TestVol20IsSampleStdOfReturns(t *testing.T) {
	closes := wavyCloses(80)
	s := NewCalculator(nil).Calculate(makeBars(closes))
	last, _ := s.Last()

	n := len(closes)
	rets := make([]float64, 0, 20)
	for i := n - 20; i < n; i++ {
		rets = append(rets, (closes[i]-closes[i-1])/closes[i-1])
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= 20
	ss := 0.0
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	want := math.Sqrt(ss / 19)
	if !near(last.Vol20, want, 1e-9) {
		t.Fatalf("vol20 = %v, want %v", last.Vol20, want)
	}
}

func TestShortSeriesDoesNotPanic(t *testing.T) {
	for _, n := range []int{0, 1, 2, 10, 14, 15, 27, 28} {
		s := NewCalculator(nil).Calculate(makeBars(wavyCloses(n)))
		if s.Len() != n {
			t.Fatalf("n=%d: got %d rows", n, s.Len())
		}
	}
}

func TestNonFiniteInputDegrades(t *testing.T) {
	closes := wavyCloses(60)
	closes[30] = math.NaN()
	bars := makeBars(closes)
	s := NewCalculator(nil).Calculate(bars)
	if s.Indicators {
		t.Fatalf("expected degraded series")
	}
	if s.Len() != len(bars) || s.Rows[10].Close != bars[10].Close {
		t.Fatalf("bars must come back unmodified")
	}
	if !math.IsNaN(s.Rows[59].RSI) {
		t.Fatalf("degraded rows must carry NaN indicators")
	}
}

func TestEMASeededFromFirstValue(t *testing.T) {
	out := EMA([]float64{10, 10, 10, 20}, 3)
	if !math.IsNaN(out[1]) || out[2] != 10 {
		t.Fatalf("unexpected warm-up %v", out)
	}
	if !near(out[3], 15, 1e-12) {
		t.Fatalf("ema[3] = %v, want 15", out[3])
	}
}

func TestRSIWilderSmoothing(t *testing.T) {
	out := RSI([]float64{1, 2, 1, 2}, 2)
	want := []float64{math.NaN(), 100, 100 - 100/1.5, 100 - 100/3.5}
	if !math.IsNaN(out[0]) {
		t.Fatalf("rsi[0] = %v, want NaN", out[0])
	}
	for i := 1; i < len(want); i++ {
		if !near(out[i], want[i], 1e-9) {
			t.Fatalf("rsi[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestOBVCountsUnchangedCloseAsBuying(t *testing.T) {
	out := OBV([]float64{10, 11, 11, 10}, []float64{1, 2, 3, 4})
	want := []float64{1, 3, 6, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("obv = %v, want %v", out, want)
		}
	}
}
