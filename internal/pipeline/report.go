package pipeline

import (
	"sort"
	"time"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
)

// RunReport describes one completed run. It backs the /status endpoint.
type RunReport struct {
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	RecordsRead     int             `json:"records_read"`
	RecordsRejected int             `json:"records_rejected"`
	Summaries       []SummaryReport `json:"summaries"`
}

// SummaryReport is the per-phase part of a RunReport.
type SummaryReport struct {
	Phase         domain.Phase    `json:"phase"`
	ReferenceYear int             `json:"reference_year"`
	Years         []int           `json:"years"`
	Countries     int             `json:"countries"`
	MissingPeaks  []string        `json:"missing_peaks"`
	Unmatched     []UnmatchedYear `json:"unmatched"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// UnmatchedYear lists countries with a peak but no overlapping report in Year.
type UnmatchedYear struct {
	Year      int      `json:"year"`
	Countries []string `json:"countries"`
}

func newSummaryReport(sum domain.Summary) SummaryReport {
	r := SummaryReport{
		Phase:         sum.Phase,
		ReferenceYear: sum.ReferenceYear,
		Years:         sum.Years,
		Countries:     len(sum.Rows),
		MissingPeaks:  sum.MissingPeaks,
		GeneratedAt:   sum.GeneratedAt,
	}
	for y, countries := range sum.Unmatched {
		r.Unmatched = append(r.Unmatched, UnmatchedYear{Year: y, Countries: countries})
	}
	sort.Slice(r.Unmatched, func(i, j int) bool { return r.Unmatched[i].Year > r.Unmatched[j].Year })
	return r
}
