package features

import (
	"fmt"
	"math"

	"SPPredict/internal/domain/models"
	applogger "SPPredict/pkg/logger"
)

// MinBars is the shortest series either the vector or the summary is built from.
const MinBars = 50

// Size is the length of the feature vector.
const Size = 22

// names lists the features in the order they were used for training. The inference
// service's trainingFeatureOrder indexes into this slice.
var names = [Size]string{
	"current_price",
	"rsi",
	"macd_line",
	"macd_signal",
	"sma_10",
	"sma_20",
	"sma_50",
	"sma_100",
	"sma_200",
	"bb_upper",
	"bb_middle",
	"bb_lower",
	"bb_width",
	"adx",
	"obv",
	"ret_1d",
	"ret_5d",
	"vol_20",
	"volume",
	"bb_position",
	"distance_to_sma_20",
	"distance_to_sma_50",
}

// Names returns the feature names in vector order.
func Names() []string {
	out := make([]string, Size)
	copy(out, names[:])
	return out
}

type Builder struct {
	logger *applogger.Logger
}

func NewBuilder(logger *applogger.Logger) *Builder {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Builder{logger: logger}
}

func (b *Builder) Names() []string { return Names() }

// Build assembles the feature vector from the latest row. Undefined values become 0.
func (b *Builder) Build(s models.Series) ([]float64, error) {
	if s.Len() < MinBars {
		return nil, fmt.Errorf("%w: %d bars, need %d", models.ErrInsufficientData, s.Len(), MinBars)
	}
	r, _ := s.Last()

	vec := []float64{
		r.Close,
		r.RSI,
		r.MACD,
		r.MACDSignal,
		r.SMA10,
		r.SMA20,
		r.SMA50,
		r.SMA100,
		r.SMA200,
		r.BBUpper,
		r.BBMiddle,
		r.BBLower,
		r.BBWidth,
		r.ADX,
		r.OBV,
		r.Ret1D,
		r.Ret5D,
		r.Vol20,
		r.Volume,
		(r.Close - r.BBLower) / (r.BBUpper - r.BBLower),
		r.Close - r.SMA20,
		r.Close - r.SMA50,
	}

	zeroed := 0
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			vec[i] = 0
			zeroed++
		}
	}
	if zeroed > 0 {
		b.logger.Debug("undefined features replaced with zero",
			applogger.Int("count", zeroed),
			applogger.Bool("indicators", s.Indicators),
		)
	}
	return vec, nil
}

// Summary is the latest indicator snapshot, with neutral defaults where a value is undefined.
func (b *Builder) Summary(s models.Series) (models.TechnicalSummary, error) {
	if s.Len() < MinBars {
		return models.TechnicalSummary{}, fmt.Errorf("%w: %d bars, need %d", models.ErrInsufficientData, s.Len(), MinBars)
	}
	r, _ := s.Last()
	c := r.Close

	return models.TechnicalSummary{
		RSI: or(r.RSI, 50),
		MACD: models.MACDSummary{
			MACD:      or(r.MACD, 0),
			Signal:    or(r.MACDSignal, 0),
			Histogram: or(r.MACDHist, 0),
		},
		MovingAverages: models.MovingAverages{
			SMA10:  or(r.SMA10, c),
			SMA20:  or(r.SMA20, c),
			SMA50:  or(r.SMA50, c),
			SMA100: or(r.SMA100, c),
			SMA200: or(r.SMA200, c),
		},
		Bollinger: models.BollingerSummary{
			Upper:  or(r.BBUpper, c*1.02),
			Middle: or(r.BBMiddle, c),
			Lower:  or(r.BBLower, c*0.98),
		},
		BollWidth:  or(r.BBWidth, 0.04),
		ADX:        or(r.ADX, 25),
		OBV:        or(r.OBV, 0),
		Ret1D:      or(r.Ret1D, 0),
		Ret5D:      or(r.Ret5D, 0),
		Vol20:      or(r.Vol20, 0.02),
		Support:    []float64{},
		Resistance: []float64{},
	}, nil
}

func or(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
