package domain

import "strings"

// TypicalPeriods is the external reference-periods table: for each country,
// one or more free-text month lists keyed by column name.
type TypicalPeriods struct {
	Columns []string
	entries map[string]map[string]string
}

// NewTypicalPeriods creates an empty table with the given columns.
func NewTypicalPeriods(columns ...string) TypicalPeriods {
	return TypicalPeriods{Columns: columns, entries: make(map[string]map[string]string)}
}

// Set stores the month list for a country and column. A duplicate country
// row does not replace the first one seen.
func (t TypicalPeriods) Set(country, column, months string) {
	country = countryKey(country)
	row, ok := t.entries[country]
	if !ok {
		row = make(map[string]string, len(t.Columns))
		t.entries[country] = row
	}
	if _, dup := row[column]; dup {
		return
	}
	row[column] = months
}

// Lookup returns the raw month list for a country and column.
func (t TypicalPeriods) Lookup(country, column string) (string, bool) {
	row, ok := t.entries[countryKey(country)]
	if !ok {
		return "", false
	}
	v, ok := row[column]
	return v, ok
}

func countryKey(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Countries returns the country codes in the table, sorted.
func (t TypicalPeriods) Countries() []string { return sortedKeys(t.entries) }

// Len returns the number of countries in the table.
func (t TypicalPeriods) Len() int { return len(t.entries) }

// OverlapScore is the share of a typical period covered by a country's peak.
// Fraction is nil when the score is undefined; Err says why.
type OverlapScore struct {
	Column   string   `json:"column"`
	Fraction *float64 `json:"fraction"`
	Err      error    `json:"-"`
}

// Defined reports whether the score has a value.
func (s OverlapScore) Defined() bool { return s.Fraction != nil }

// OverlapFraction returns |reference ∩ typical| / |typical|. It returns nil
// when either set is empty.
func OverlapFraction(reference, typical MonthSet) *float64 {
	if reference.Len() == 0 || typical.Len() == 0 {
		return nil
	}
	f := float64(reference.Intersect(typical).Len()) / float64(typical.Len())
	return &f
}

// ScoreOverlap scores a reference interval against a free-text month list.
// A missing, blank or unparseable list gives an undefined score, never 0.
func ScoreOverlap(reference Interval, typical string, present bool) OverlapScore {
	if !present || strings.TrimSpace(typical) == "" {
		return OverlapScore{Err: ErrNoTypicalPeriod}
	}
	set, err := ParseMonthList(typical)
	if err != nil {
		return OverlapScore{Err: err}
	}
	f := OverlapFraction(MonthsTouched(reference), set)
	if f == nil {
		return OverlapScore{Err: ErrEmptyMonthSet}
	}
	return OverlapScore{Fraction: f}
}

// ScoreOverlaps scores a peak against every column of the table, in column
// order.
func ScoreOverlaps(peak PeakRecord, periods TypicalPeriods) []OverlapScore {
	scores := make([]OverlapScore, 0, len(periods.Columns))
	for _, col := range periods.Columns {
		v, ok := periods.Lookup(peak.Country, col)
		s := ScoreOverlap(peak.Interval, v, ok)
		s.Column = col
		scores = append(scores, s)
	}
	return scores
}
