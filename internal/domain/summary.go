package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// SummaryParams selects one (reference year, phase) computation and the
// years to match against it.
type SummaryParams struct {
	ReferenceYear int
	Years         []int
	Phase         Phase
}

// Validate rejects parameters that cannot produce a summary.
func (p SummaryParams) Validate() error {
	var errs []error
	if p.ReferenceYear <= 0 {
		errs = append(errs, fmt.Errorf("reference year must be positive, got %d", p.ReferenceYear))
	}
	if _, err := ParsePhase(string(p.Phase)); err != nil {
		errs = append(errs, err)
	}
	if len(p.Years) == 0 {
		errs = append(errs, errors.New("at least one match year is required"))
	}
	return errors.Join(errs...)
}

// YearColumn is one matched year of a summary row. Match is nil when the
// country has no overlapping report that year.
type YearColumn struct {
	Year  int        `json:"year"`
	Match *YearMatch `json:"match"`
}

// SummaryRow is the per-country output of one run.
type SummaryRow struct {
	Country         string         `json:"country"`
	CountryName     string         `json:"country_name,omitempty"`
	ReferenceYear   int            `json:"reference_year"`
	Phase           Phase          `json:"phase"`
	ReferencePeriod Interval       `json:"reference_period"`
	Years           []YearColumn   `json:"years"`
	Changes         []YearChange   `json:"changes"`
	Overlaps        []OverlapScore `json:"overlaps"`
}

// Summary is the full output of one (reference year, phase) computation.
type Summary struct {
	ReferenceYear  int
	Phase          Phase
	Years          []int // newest first
	OverlapColumns []string
	Rows           []SummaryRow
	MissingPeaks   []string
	Unmatched      map[int][]string
	GeneratedAt    time.Time
}

// Summarize runs peak selection, year matching, year-over-year aggregation
// and overlap scoring for one phase. Rows are sorted by country and contain
// only countries with a peak in the reference year.
func Summarize(reports []Report, params SummaryParams, periods TypicalPeriods) (Summary, error) {
	if err := params.Validate(); err != nil {
		return Summary{}, fmt.Errorf("invalid summary params: %w", err)
	}
	years := newestFirst(params.Years)

	peaks := SelectPeaks(reports, params.ReferenceYear, params.Phase)

	sum := Summary{
		ReferenceYear:  params.ReferenceYear,
		Phase:          params.Phase,
		Years:          years,
		OverlapColumns: periods.Columns,
		Rows:           make([]SummaryRow, 0, len(peaks.Peaks)),
		MissingPeaks:   peaks.Missing,
		Unmatched:      make(map[int][]string, len(years)),
		GeneratedAt:    clock.Now().UTC(),
	}

	matches := make(map[int]map[string]YearMatch, len(years))
	for _, y := range years {
		set := MatchYear(reports, peaks.Peaks, y, params.Phase)
		matches[y] = set.ByCountry()
		if len(set.Unmatched) > 0 {
			sum.Unmatched[y] = set.Unmatched
		}
	}

	for _, peak := range peaks.Peaks {
		row := SummaryRow{
			Country:         peak.Country,
			ReferenceYear:   peak.ReferenceYear,
			Phase:           peak.Phase,
			ReferencePeriod: peak.Interval,
			Years:           make([]YearColumn, 0, len(years)),
			Overlaps:        ScoreOverlaps(peak, periods),
		}
		pcts := make(map[int]float64, len(years))
		for _, y := range years {
			col := YearColumn{Year: y}
			if m, ok := matches[y][peak.Country]; ok {
				col.Match = &m
				pcts[y] = m.Percentage
			}
			row.Years = append(row.Years, col)
		}
		row.Changes = YearOverYear(years, pcts)
		sum.Rows = append(sum.Rows, row)
	}
	return sum, nil
}

// newestFirst returns the distinct years in descending order.
func newestFirst(years []int) []int {
	seen := make(map[int]struct{}, len(years))
	out := make([]int, 0, len(years))
	for _, y := range years {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
