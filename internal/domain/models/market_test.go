package models

import (
	"testing"
	"time"
)

func TestNormalizeBars(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 3, day, 21, 0, 0, 0, time.UTC) }
	in := []Bar{
		{Timestamp: d(5), Close: 3},
		{Timestamp: d(3), Close: 1},
		{Timestamp: d(4), Close: 0},
		{Timestamp: d(5), Close: 4},
		{Timestamp: d(6), Close: 5},
	}
	out := NormalizeBars(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(out))
	}
	if out[0].Close != 1 || out[1].Close != 4 || out[2].Close != 5 {
		t.Fatalf("unexpected order %+v", out)
	}
}

func TestQuoteFromLastTwoSessions(t *testing.T) {
	prev := Bar{Close: 5000}
	cur := Bar{Timestamp: time.Date(2025, 3, 5, 21, 0, 0, 0, time.UTC), Open: 5010, High: 5060, Low: 4990, Close: 5050, Volume: 3.2e9}
	q := NewQuote(prev, cur)
	if q.Price != 5050 || q.PreviousClose != 5000 || q.Change != 50 || q.ChangePercent != 1 {
		t.Fatalf("unexpected quote %+v", q)
	}
	if q.Volume != 3_200_000_000 || q.Timestamp != "2025-03-05T21:00:00Z" {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestHistoricalPointIsIntraday(t *testing.T) {
	p := NewHistoricalPoint(Bar{Open: 4000, Close: 3960})
	if p.Change != -40 || p.ChangePercent != -1 || p.Price != 3960 {
		t.Fatalf("unexpected point %+v", p)
	}
}
