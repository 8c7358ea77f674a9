package domain

import (
	"fmt"
	"math/bits"
	"strings"
	"time"
)

// MonthSet is a set of calendar months, one bit per month (January = bit 0).
type MonthSet uint16

const allMonths MonthSet = 1<<12 - 1

// MonthsOf builds a set from the given months. Values outside 1..12 are
// ignored.
func MonthsOf(months ...time.Month) MonthSet {
	var s MonthSet
	for _, m := range months {
		s = s.With(m)
	}
	return s
}

// With returns the set with m added.
func (s MonthSet) With(m time.Month) MonthSet {
	if m < time.January || m > time.December {
		return s
	}
	return s | 1<<(m-1)
}

// Has reports whether m is in the set.
func (s MonthSet) Has(m time.Month) bool {
	if m < time.January || m > time.December {
		return false
	}
	return s&(1<<(m-1)) != 0
}

// Len returns the number of months in the set.
func (s MonthSet) Len() int { return bits.OnesCount16(uint16(s & allMonths)) }

// Intersect returns the months present in both sets.
func (s MonthSet) Intersect(other MonthSet) MonthSet { return s & other & allMonths }

// Months lists the members in calendar order.
func (s MonthSet) Months() []time.Month {
	out := make([]time.Month, 0, s.Len())
	for m := time.January; m <= time.December; m++ {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s MonthSet) String() string {
	names := make([]string, 0, s.Len())
	for _, m := range s.Months() {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}

// MonthsTouched walks iv month by month from its start to its end inclusive,
// wrapping December to January, and returns every calendar month visited.
// A three-month interval touches exactly three months whichever years it
// spans; an interval of a year or more touches all twelve.
func MonthsTouched(iv Interval) MonthSet {
	if iv.To.Before(iv.From) {
		return 0
	}
	var s MonthSet
	cur := time.Date(iv.From.Year(), iv.From.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(iv.To) && s != allMonths {
		s = s.With(cur.Month())
		cur = cur.AddDate(0, 1, 0)
	}
	return s
}

// monthLookup maps lower-cased English month names and three-letter
// abbreviations to months. It is built from time.Month so no locale data is
// involved.
var monthLookup = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	for mo := time.January; mo <= time.December; mo++ {
		name := strings.ToLower(mo.String())
		m[name] = mo
		m[name[:3]] = mo
	}
	m["sept"] = time.September
	return m
}()

// ParseMonthList parses a comma-separated list of month names such as
// "June, July, August". Blank tokens are skipped; any other unrecognised
// token fails the whole list.
func ParseMonthList(s string) (MonthSet, error) {
	var set MonthSet
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.Trim(strings.TrimSpace(tok), "."))
		if tok == "" {
			continue
		}
		m, ok := monthLookup[tok]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, tok)
		}
		set = set.With(m)
	}
	return set, nil
}
