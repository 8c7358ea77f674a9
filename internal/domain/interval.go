package domain

import (
	"encoding/json"
	"time"
)

// labelLayout renders interval bounds as "Jun 2024".
const labelLayout = "Jan 2006"

// Interval is a closed calendar-date range [From, To]. Bounds are UTC
// midnights.
type Interval struct {
	From time.Time
	To   time.Time
}

// NewInterval builds an interval from two calendar dates.
func NewInterval(fromYear int, fromMonth time.Month, fromDay int, toYear int, toMonth time.Month, toDay int) Interval {
	return Interval{
		From: time.Date(fromYear, fromMonth, fromDay, 0, 0, 0, 0, time.UTC),
		To:   time.Date(toYear, toMonth, toDay, 0, 0, 0, 0, time.UTC),
	}
}

// Overlaps reports whether the two closed intervals share at least one day.
// The test is symmetric and every interval overlaps itself.
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.To.Before(other.From) && !other.To.Before(iv.From)
}

// CrossesYear reports whether the interval starts in a later month than it
// ends, ignoring years (e.g. Dec to Jan).
func (iv Interval) CrossesYear() bool {
	return iv.From.Month() > iv.To.Month()
}

// Equal compares both bounds as instants.
func (iv Interval) Equal(other Interval) bool {
	return iv.From.Equal(other.From) && iv.To.Equal(other.To)
}

// Label formats the interval as "Mon YYYY to Mon YYYY".
func (iv Interval) Label() string {
	return iv.From.Format(labelLayout) + " to " + iv.To.Format(labelLayout)
}

func (iv Interval) String() string {
	return iv.From.Format(time.DateOnly) + "/" + iv.To.Format(time.DateOnly)
}

// MarshalJSON encodes the interval as {"from":"2024-06-01","to":"2024-08-31"}.
func (iv Interval) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{iv.From.Format(time.DateOnly), iv.To.Format(time.DateOnly)})
}

// Reproject maps iv onto refYear's calendar, ignoring the interval's own
// years. When the interval crosses a December to January boundary the start
// lands in refYear-1 and the end in refYear; otherwise both land in refYear.
//
// The start keeps its day of month, clamped to the month length so that a
// Feb 29 start re-projects to Feb 28 in a non-leap year. The end is always
// the last day of the end month: matching treats reports as running through
// the end of their final month.
func Reproject(iv Interval, refYear int) Interval {
	fromYear := refYear
	if iv.CrossesYear() {
		fromYear = refYear - 1
	}
	fromMonth := iv.From.Month()
	day := min(iv.From.Day(), daysIn(fromYear, fromMonth))
	return Interval{
		From: time.Date(fromYear, fromMonth, day, 0, 0, 0, 0, time.UTC),
		To:   endOfMonth(refYear, iv.To.Month()),
	}
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return endOfMonth(year, month).Day()
}

// endOfMonth returns the last calendar day of the given month. Day 0 of the
// following month normalizes to it.
func endOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}
