package domain

import "sort"

// preferFunc reports whether candidate should replace incumbent as the kept
// row of a group. Returning false on a full tie keeps the earlier row, so
// every selection below is deterministic for a given input order.
type preferFunc func(candidate, incumbent Report) bool

// preferLatestAnalysis resolves re-publications of the same period: the
// latest analysis wins, then the observed (current) window over projections,
// then the higher percentage when one analysis published competing
// projections for the same window.
func preferLatestAnalysis(candidate, incumbent Report) bool {
	if !candidate.AnalysisDate.Equal(incumbent.AnalysisDate) {
		return candidate.AnalysisDate.After(incumbent.AnalysisDate)
	}
	if candidate.Kind != incumbent.Kind {
		return candidate.Kind < incumbent.Kind
	}
	return candidate.Percentage > incumbent.Percentage
}

// preferWorstPeriod picks the peak among distinct periods of one country:
// the highest percentage wins, then the earlier period start, then the
// earlier period end. Periods are distinct after deduplication, so this
// order does not depend on input order.
func preferWorstPeriod(candidate, incumbent Report) bool {
	if candidate.Percentage != incumbent.Percentage {
		return candidate.Percentage > incumbent.Percentage
	}
	if !candidate.Period.From.Equal(incumbent.Period.From) {
		return candidate.Period.From.Before(incumbent.Period.From)
	}
	return candidate.Period.To.Before(incumbent.Period.To)
}

// preferWorstMatch resolves several overlapping candidates in a target year:
// the highest percentage wins, then the latest analysis, then the earlier
// period. Full ties keep the first row seen.
func preferWorstMatch(candidate, incumbent Report) bool {
	if candidate.Percentage != incumbent.Percentage {
		return candidate.Percentage > incumbent.Percentage
	}
	if !candidate.AnalysisDate.Equal(incumbent.AnalysisDate) {
		return candidate.AnalysisDate.After(incumbent.AnalysisDate)
	}
	return candidate.Period.From.Before(incumbent.Period.From)
}

// selectBy keeps one report per key using prefer, returning survivors in the
// order their keys were first seen.
func selectBy[K comparable](reports []Report, key func(Report) K, prefer preferFunc) []Report {
	index := make(map[K]int, len(reports))
	kept := make([]Report, 0, len(reports))
	for _, r := range reports {
		k := key(r)
		i, ok := index[k]
		if !ok {
			index[k] = len(kept)
			kept = append(kept, r)
			continue
		}
		if prefer(r, kept[i]) {
			kept[i] = r
		}
	}
	return kept
}

type periodKey struct {
	country  string
	from, to int64
}

func byPeriod(r Report) periodKey {
	return periodKey{country: r.Country, from: r.Period.From.Unix(), to: r.Period.To.Unix()}
}

func byCountry(r Report) string { return r.Country }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
