package domain

import (
	"testing"
	"time"
)

const (
	testSudan   = "SDN"
	testSomalia = "SOM"
	testHaiti   = "HTI"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func interval(t *testing.T, from, to string) Interval {
	t.Helper()
	return Interval{From: day(t, from), To: day(t, to)}
}

// report builds a phase 3+ current report analysed on analysis.
func report(t *testing.T, country, from, to, analysis string, pct float64) Report {
	t.Helper()
	return Report{
		Country:      country,
		Phase:        Phase3Plus,
		Period:       interval(t, from, to),
		AnalysisDate: day(t, analysis),
		Percentage:   pct,
		Count:        int64(pct * 1_000_000),
		Population:   1_000_000,
		Kind:         KindCurrent,
	}
}

func ptr(v float64) *float64 { return &v }
