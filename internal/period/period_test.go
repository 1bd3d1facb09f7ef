package period

import (
	"testing"
	"time"
)

var now = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func TestForSeries(t *testing.T) {
	cases := []struct {
		spec  string
		start time.Time
	}{
		{"12", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"1", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)},        // default 12
		{"garbage", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)}, // default 12
		{"999", time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC)},     // clamped to 60
		{"-3", time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)},      // clamped to 1
	}
	for _, tc := range cases {
		w := ForSeries(tc.spec, now)
		if !w.Start.Equal(tc.start) {
			t.Fatalf("spec %q: expected start %v, got %v", tc.spec, tc.start, w.Start)
		}
		if !w.End.Equal(now) {
			t.Fatalf("spec %q: end should be now", tc.spec)
		}
	}
}

func TestForSeriesStableWithinDay(t *testing.T) {
	morning := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 6, 15, 22, 45, 0, 0, time.UTC)
	if !ForSeries("12", morning).Start.Equal(ForSeries("12", evening).Start) {
		t.Fatalf("start boundary should be stable across the same day")
	}
}

func TestForProfit(t *testing.T) {
	// 6 months including the current one: January through June
	w := ForProfit("6", now)
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Fatalf("expected start snapped to first of month %v, got %v", want, w.Start)
	}
	// clamp to 24
	w = ForProfit("100", now)
	want = time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)
	if !w.Start.Equal(want) {
		t.Fatalf("expected clamp to 24 months (%v), got %v", want, w.Start)
	}
}

func TestForCategories(t *testing.T) {
	cases := []struct {
		spec string
		days int
	}{
		{"weekly", 7},
		{"monthly", 30},
		{"yearly", 365},
		{"30", 30},
		{"", 30},     // default
		{"5000", 365}, // clamped
	}
	for _, tc := range cases {
		w := ForCategories(tc.spec, now)
		wantDay := now.AddDate(0, 0, -tc.days)
		want := time.Date(wantDay.Year(), wantDay.Month(), wantDay.Day(), 0, 0, 0, 0, time.UTC)
		if !w.Start.Equal(want) {
			t.Fatalf("spec %q: expected start %v, got %v", tc.spec, want, w.Start)
		}
	}
}

func TestWindowContains(t *testing.T) {
	w := CurrentMonth(now)
	if !w.Contains(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start of month should be inside the window")
	}
	if !w.Contains(now) {
		t.Fatalf("records up to and including now qualify")
	}
	if w.Contains(time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("previous month should be outside the window")
	}
}
