package domain

import "math"

// changePrecision is the number of decimals kept on year-over-year deltas.
const changePrecision = 2

// YearChange is the signed percentage difference between two matched years.
// Delta is nil when either year has no match.
type YearChange struct {
	From  int      `json:"from"`
	To    int      `json:"to"`
	Delta *float64 `json:"delta"`
}

// PercentageDelta returns newer-older rounded to two decimals, or nil if
// either side is missing.
func PercentageDelta(newer, older *float64) *float64 {
	if newer == nil || older == nil {
		return nil
	}
	d := roundTo(*newer-*older, changePrecision)
	return &d
}

// YearOverYear computes deltas between consecutive entries of years, which
// must be ordered newest first. percentages holds the matched percentage for
// each year that has one.
func YearOverYear(years []int, percentages map[int]float64) []YearChange {
	if len(years) < 2 {
		return nil
	}
	changes := make([]YearChange, 0, len(years)-1)
	for i := 0; i+1 < len(years); i++ {
		newer, older := years[i], years[i+1]
		changes = append(changes, YearChange{
			From:  older,
			To:    newer,
			Delta: PercentageDelta(lookupPtr(percentages, newer), lookupPtr(percentages, older)),
		})
	}
	return changes
}

func lookupPtr(m map[int]float64, k int) *float64 {
	v, ok := m[k]
	if !ok {
		return nil
	}
	return &v
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
