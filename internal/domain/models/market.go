package models

import (
	"sort"
	"time"
)

// Bar is one daily OHLCV session.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Quote is the latest session compared with the one before it.
type Quote struct {
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Timestamp     string  `json:"timestamp"`
}

// NewQuote builds a quote from the last two sessions.
func NewQuote(prev, cur Bar) Quote {
	change := cur.Close - prev.Close
	var pct float64
	if prev.Close != 0 {
		pct = change / prev.Close * 100
	}
	return Quote{
		Price:         cur.Close,
		Open:          cur.Open,
		High:          cur.High,
		Low:           cur.Low,
		Volume:        int64(cur.Volume),
		PreviousClose: prev.Close,
		Change:        change,
		ChangePercent: pct,
		Timestamp:     cur.Timestamp.Format(time.RFC3339),
	}
}

// HistoricalPoint is one bar as served by the historical endpoint.
type HistoricalPoint struct {
	Timestamp     string  `json:"timestamp"`
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// NewHistoricalPoint reports the intraday move (close against open).
func NewHistoricalPoint(b Bar) HistoricalPoint {
	var pct float64
	if b.Open != 0 {
		pct = (b.Close - b.Open) / b.Open * 100
	}
	return HistoricalPoint{
		Timestamp:     b.Timestamp.Format(time.RFC3339),
		Price:         b.Close,
		Open:          b.Open,
		High:          b.High,
		Low:           b.Low,
		Volume:        int64(b.Volume),
		Change:        b.Close - b.Open,
		ChangePercent: pct,
	}
}

type HistoricalResponse struct {
	Data []HistoricalPoint `json:"data"`
}

// NormalizeBars sorts bars by time, keeps the last bar for a duplicated timestamp and
// drops bars without a positive close.
func NormalizeBars(in []Bar) []Bar {
	out := make([]Bar, 0, len(in))
	for _, b := range in {
		if b.Close > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	n := 0
	for i := range out {
		if n > 0 && out[n-1].Timestamp.Equal(out[i].Timestamp) {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}
