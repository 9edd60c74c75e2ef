package util

import (
	"testing"
	"time"
)

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 6, 16, 20, 0, 0, 0, time.UTC)
	cases := []struct {
		period string
		want   time.Time
	}{
		{"5d", time.Date(2025, 6, 11, 20, 0, 0, 0, time.UTC)},
		{"1mo", time.Date(2025, 5, 16, 20, 0, 0, 0, time.UTC)},
		{"6mo", time.Date(2024, 12, 16, 20, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2024, 6, 16, 20, 0, 0, 0, time.UTC)},
		{"ytd", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := PeriodStart(c.period, now)
		if err != nil {
			t.Fatalf("%s: %v", c.period, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("%s: expected %v, got %v", c.period, c.want, got)
		}
	}
}

func TestPeriodStartUnknown(t *testing.T) {
	if _, err := PeriodStart("3w", time.Now()); err == nil {
		t.Fatalf("expected error")
	}
	if ValidPeriod("3w") {
		t.Fatalf("3w should not be valid")
	}
}

func TestEveryPeriodResolves(t *testing.T) {
	now := time.Now()
	for _, p := range Periods {
		start, err := PeriodStart(p, now)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if !start.Before(now) {
			t.Fatalf("%s: start %v not before now", p, start)
		}
	}
}

func TestTradingDaysAgoSkipsWeekend(t *testing.T) {
	monday := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	got := TradingDaysAgo(monday, 1)
	if got.Weekday() != time.Friday {
		t.Fatalf("expected Friday, got %v", got.Weekday())
	}
	got = TradingDaysAgo(monday, 5)
	if !got.Equal(time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
}
