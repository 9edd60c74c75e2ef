package models

// IndicatorRow is a bar with its technical indicators. Undefined values are NaN.
type IndicatorRow struct {
	Bar

	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	SMA10      float64
	SMA20      float64
	SMA50      float64
	SMA100     float64
	SMA200     float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	BBWidth    float64
	ADX        float64
	OBV        float64
	Ret1D      float64
	Ret5D      float64
	Vol20      float64
}

// Series is a chronological run of indicator rows.
// Indicators is false when calculation failed and only the raw bars are present.
type Series struct {
	Rows       []IndicatorRow
	Indicators bool
}

func (s Series) Len() int { return len(s.Rows) }

// Last returns the most recent row.
func (s Series) Last() (IndicatorRow, bool) {
	if len(s.Rows) == 0 {
		return IndicatorRow{}, false
	}
	return s.Rows[len(s.Rows)-1], true
}

// Bars returns the underlying OHLCV bars.
func (s Series) Bars() []Bar {
	out := make([]Bar, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = r.Bar
	}
	return out
}
