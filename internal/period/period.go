// Package period turns loose report-window specs into concrete time ranges.
//
// Report endpoints are best-effort dashboards, so unrecognized or missing
// period specs fall back to documented defaults instead of erroring.
package period

import (
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultSeriesMonths is the fallback window for income/expense series.
	DefaultSeriesMonths = 12
	// MaxSeriesMonths caps income/expense series requests.
	MaxSeriesMonths = 60

	// DefaultProfitMonths is the fallback window for profit series.
	DefaultProfitMonths = 12
	// MaxProfitMonths caps profit series requests.
	MaxProfitMonths = 24

	// DefaultCategoryDays is the fallback window for category breakdowns.
	DefaultCategoryDays = 30
	// MaxCategoryDays caps category breakdown requests.
	MaxCategoryDays = 365
)

// Window is a resolved [Start, End) range. End is "now"; records up to and
// including End qualify.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// startOfDay truncates to midnight UTC so a "last N months" query has
// stable boundaries across repeated calls within the same day.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns midnight UTC on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// clampCount parses a bare count, applying the default for anything
// unparseable and clamping the result to [1, max].
func clampCount(spec string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(spec))
	if err != nil || n == 0 {
		n = def
	}
	if n < 1 {
		n = 1
	}
	if n > max {
		n = max
	}
	return n
}

// ForSeries resolves a trailing-months spec for income/expense series.
// Clamped to [1, 60], defaulting to 12 months.
func ForSeries(spec string, now time.Time) Window {
	months := clampCount(spec, DefaultSeriesMonths, MaxSeriesMonths)
	return Window{Start: startOfDay(now.AddDate(0, -months, 0)), End: now}
}

// ForProfit resolves a trailing-months spec for profit series. Clamped to
// [1, 24], defaulting to 12 months. The start is snapped to the first of
// the month and the current month counts as the last of the N, so
// gap-filling emits exactly N whole calendar months.
func ForProfit(spec string, now time.Time) Window {
	months := clampCount(spec, DefaultProfitMonths, MaxProfitMonths)
	return Window{Start: StartOfMonth(now.AddDate(0, -(months - 1), 0)), End: now}
}

// ForCategories resolves a category-breakdown spec: either one of the named
// buckets (weekly, monthly, yearly) or a bare count of trailing days
// clamped to [1, 365], defaulting to 30 days.
func ForCategories(spec string, now time.Time) Window {
	var days int
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "weekly":
		days = 7
	case "monthly":
		days = 30
	case "yearly":
		days = 365
	default:
		days = clampCount(spec, DefaultCategoryDays, MaxCategoryDays)
	}
	return Window{Start: startOfDay(now.AddDate(0, 0, -days)), End: now}
}

// CurrentMonth is the window from the start of the current calendar month
// to now, used by the monthly income/expense totals.
func CurrentMonth(now time.Time) Window {
	return Window{Start: StartOfMonth(now), End: now}
}
