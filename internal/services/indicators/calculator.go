package indicators

import (
	"fmt"
	"math"
	"runtime/debug"

	"SPPredict/internal/domain/models"
	applogger "SPPredict/pkg/logger"

	"github.com/markcheno/go-talib"
)

// Indicator windows.
const (
	RSIPeriod  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
	BBPeriod   = 20
	BBDev      = 2.0
	ADXPeriod  = 14
	VolPeriod  = 20
)

// SMAPeriods are the simple moving averages attached to every row.
var SMAPeriods = [...]int{10, 20, 50, 100, 200}

// Calculator computes the indicator set over a bar series. SMA, Bollinger and ADX
// come from go-talib; RSI, OBV and MACD are computed in series.go.
type Calculator struct {
	logger *applogger.Logger
}

func NewCalculator(logger *applogger.Logger) *Calculator {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Calculator{logger: logger}
}

// Calculate returns bars with indicators attached. Each value only depends on bars up to
// its own index; warm-up positions are NaN. On any failure the bars come back unmodified
// with Indicators=false.
func (c *Calculator) Calculate(bars []models.Bar) (out models.Series) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("indicator calculation panicked",
				applogger.String("panic", fmt.Sprint(r)),
				applogger.Int("bars", len(bars)),
				applogger.String("stack", string(debug.Stack())),
			)
			out = models.Series{Rows: plainRows(bars)}
		}
	}()

	rows := plainRows(bars)
	if len(rows) == 0 {
		return models.Series{Rows: rows}
	}

	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	vols := make([]float64, n)
	for i, b := range bars {
		closes[i], highs[i], lows[i], vols[i] = b.Close, b.High, b.Low, b.Volume
	}
	for i, v := range closes {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			c.logger.Warn("non-finite close in series, skipping indicators", applogger.Int("index", i))
			return models.Series{Rows: rows}
		}
	}

	rsi := RSI(closes, RSIPeriod)
	macd, signal, hist := MACD(closes, MACDFast, MACDSlow, MACDSignal)

	smas := make([][]float64, len(SMAPeriods))
	for k, p := range SMAPeriods {
		smas[k] = nanSeries(n)
		if n >= p {
			smas[k] = masked(talib.Sma(closes, p), p-1)
		}
	}

	upper, middle, lower := nanSeries(n), nanSeries(n), nanSeries(n)
	if n >= BBPeriod {
		u, m, l := talib.BBands(closes, BBPeriod, BBDev, BBDev, talib.SMA)
		upper, middle, lower = masked(u, BBPeriod-1), masked(m, BBPeriod-1), masked(l, BBPeriod-1)
	}

	adx := nanSeries(n)
	if lookback := 2*ADXPeriod - 1; n > lookback {
		adx = masked(talib.Adx(highs, lows, closes, ADXPeriod), lookback)
	}

	obv := OBV(closes, vols)
	ret1 := PctChange(closes, 1)
	ret5 := PctChange(closes, 5)
	vol20 := RollingSampleStd(ret1, VolPeriod)

	for i := range rows {
		r := &rows[i]
		r.RSI = rsi[i]
		r.MACD, r.MACDSignal, r.MACDHist = macd[i], signal[i], hist[i]
		r.SMA10, r.SMA20, r.SMA50, r.SMA100, r.SMA200 = smas[0][i], smas[1][i], smas[2][i], smas[3][i], smas[4][i]
		r.BBUpper, r.BBMiddle, r.BBLower = upper[i], middle[i], lower[i]
		r.BBWidth = math.NaN()
		if middle[i] != 0 && !math.IsNaN(middle[i]) {
			r.BBWidth = (upper[i] - lower[i]) / middle[i] * 100
		}
		r.ADX = adx[i]
		r.OBV = obv[i]
		r.Ret1D, r.Ret5D = ret1[i], ret5[i]
		r.Vol20 = vol20[i]
	}

	return models.Series{Rows: rows, Indicators: true}
}

func plainRows(bars []models.Bar) []models.IndicatorRow {
	rows := make([]models.IndicatorRow, len(bars))
	nan := math.NaN()
	for i, b := range bars {
		rows[i] = models.IndicatorRow{
			Bar: b,
			RSI: nan, MACD: nan, MACDSignal: nan, MACDHist: nan,
			SMA10: nan, SMA20: nan, SMA50: nan, SMA100: nan, SMA200: nan,
			BBUpper: nan, BBMiddle: nan, BBLower: nan, BBWidth: nan,
			ADX: nan, OBV: nan, Ret1D: nan, Ret5D: nan, Vol20: nan,
		}
	}
	return rows
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// masked replaces talib's zero-filled warm-up prefix with NaN.
func masked(in []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(in); i++ {
		in[i] = math.NaN()
	}
	return in
}
