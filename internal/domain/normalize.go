package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// analysisDateLayouts are tried in order for "Date of analysis". HDX uses
// month precision ("Nov 2023"); some exports carry full dates.
var analysisDateLayouts = []string{"Jan 2006", "January 2006", "2006-01-02", "2006-01"}

// periodDateLayouts are tried in order for From and To.
var periodDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// NormalizeResult holds the accepted reports in input order and the rows
// that were rejected.
type NormalizeResult struct {
	Reports  []Report
	Rejected []*RecordError
}

// NormalizeRecords converts raw rows into typed reports. A row that fails
// any field is rejected with a *RecordError; other rows are unaffected.
// Accepted rows keep their input order.
func NormalizeRecords(raws []RawRecord) NormalizeResult {
	res := NormalizeResult{Reports: make([]Report, 0, len(raws))}
	for _, raw := range raws {
		r, err := NormalizeRecord(raw)
		if err != nil {
			res.Rejected = append(res.Rejected, err)
			continue
		}
		res.Reports = append(res.Reports, r)
	}
	return res
}

// NormalizeRecord converts one raw row.
func NormalizeRecord(raw RawRecord) (Report, *RecordError) {
	fail := func(field, value string, err error) (Report, *RecordError) {
		return Report{}, &RecordError{Row: raw.Row, Field: field, Value: value, Err: err}
	}

	country := strings.ToUpper(strings.TrimSpace(raw.Country))
	if country == "" {
		return fail("Country", raw.Country, fmt.Errorf("empty country code"))
	}

	phase, err := ParsePhase(raw.Phase)
	if err != nil {
		return fail("Phase", raw.Phase, err)
	}

	from, err := parseDate(raw.From, periodDateLayouts)
	if err != nil {
		return fail("From", raw.From, err)
	}
	to, err := parseDate(raw.To, periodDateLayouts)
	if err != nil {
		return fail("To", raw.To, err)
	}
	if to.Before(from) {
		return fail("To", raw.To, fmt.Errorf("period ends before it starts (%s)", from.Format(time.DateOnly)))
	}

	analysis, err := parseDate(raw.AnalysisDate, analysisDateLayouts)
	if err != nil {
		return fail("Date of analysis", raw.AnalysisDate, err)
	}

	pct, err := parseNonNegativeFloat(raw.Percentage)
	if err != nil {
		return fail("Percentage", raw.Percentage, err)
	}
	if pct > 100 {
		return fail("Percentage", raw.Percentage, fmt.Errorf("percentage above 100"))
	}

	count, err := parseCount(raw.Number)
	if err != nil {
		return fail("Number", raw.Number, err)
	}
	pop, err := parseCount(raw.Population)
	if err != nil {
		return fail("Total country population", raw.Population, err)
	}

	return Report{
		Country:      country,
		Phase:        phase,
		Period:       Interval{From: from, To: to},
		AnalysisDate: analysis,
		Percentage:   pct,
		Count:        count,
		Population:   pop,
		Kind:         ParseReportKind(raw.ValidityPeriod),
	}, nil
}

// parseDate parses s with the first matching layout and truncates it to a
// UTC calendar date.
func parseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date format")
}

func parseNonNegativeFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("not a non-negative finite number")
	}
	return v, nil
}

// parseCount accepts integers, including float spellings such as "1.2e6" or
// "1500.0" that spreadsheet exports produce, as long as they are integral.
func parseCount(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count")
		}
		return n, nil
	}
	v, err := parseNonNegativeFloat(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || v > math.MaxInt64 {
		return 0, fmt.Errorf("not an integer count")
	}
	return int64(v), nil
}
