package domain

import (
	"fmt"
	"strings"
	"time"
)

// Phase is an IPC severity classification.
type Phase string

const (
	Phase1     Phase = "1"
	Phase2     Phase = "2"
	Phase3     Phase = "3"
	Phase4     Phase = "4"
	Phase5     Phase = "5"
	Phase3Plus Phase = "3+"
)

// ParsePhase accepts "3+", "4", "Phase 4" and similar spellings.
func ParsePhase(s string) (Phase, error) {
	v := strings.TrimSpace(s)
	if len(v) > 5 && strings.EqualFold(v[:5], "phase") {
		v = strings.TrimSpace(v[5:])
	}
	switch p := Phase(v); p {
	case Phase1, Phase2, Phase3, Phase4, Phase5, Phase3Plus:
		return p, nil
	default:
		return "", fmt.Errorf("unknown phase %q", s)
	}
}

// ReportKind is the validity period of a report. It only orders otherwise
// tied duplicates.
type ReportKind int

const (
	KindCurrent ReportKind = iota
	KindProjected
	KindSecondProjected
	KindUnknown
)

// ParseReportKind maps the HDX "Validity period" column. Unrecognised or
// empty values map to KindUnknown.
func ParseReportKind(s string) ReportKind {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("_", " ", "-", " ").Replace(v)
	switch v {
	case "current", "current analysis":
		return KindCurrent
	case "projected", "projection", "first projection", "first projected":
		return KindProjected
	case "second projected", "second projection":
		return KindSecondProjected
	default:
		return KindUnknown
	}
}

func (k ReportKind) String() string {
	switch k {
	case KindCurrent:
		return "current"
	case KindProjected:
		return "projected"
	case KindSecondProjected:
		return "second_projected"
	default:
		return "unknown"
	}
}

// RawRecord is one input row exactly as read from the source table.
type RawRecord struct {
	Row            int // 1-based line number in the source, for diagnostics
	Country        string
	ValidityPeriod string
	AnalysisDate   string
	From           string
	To             string
	Phase          string
	Number         string
	Percentage     string
	Population     string
}

// Report is a normalized input row.
type Report struct {
	Country      string
	Phase        Phase
	Period       Interval
	AnalysisDate time.Time
	Percentage   float64
	Count        int64
	Population   int64
	Kind         ReportKind
}

// Year is the calendar year the report is attributed to: the year of its
// period end.
func (r Report) Year() int { return r.Period.To.Year() }

// countriesOf returns the distinct country codes of reports in sorted order.
func countriesOf(reports []Report) []string {
	seen := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		seen[r.Country] = struct{}{}
	}
	return sortedKeys(seen)
}
