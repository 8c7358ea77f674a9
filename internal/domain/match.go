package domain

import "sort"

// YearMatch is the report in a target year whose re-projected period
// overlaps a country's peak hunger period.
type YearMatch struct {
	Country      string   `json:"country"`
	Year         int      `json:"year"`
	Phase        Phase    `json:"phase"`
	ReportPeriod Interval `json:"report_period"`
	Count        int64    `json:"number"`
	Percentage   float64  `json:"percentage"`
	Population   int64    `json:"total_pop"`
}

// YearMatchSet is the result of MatchYear. Unmatched lists countries that
// have a peak but no report in the year overlapping it; they are absent
// from Matches rather than zero-valued.
type YearMatchSet struct {
	Year      int
	Phase     Phase
	Matches   []YearMatch
	Unmatched []string
}

// ByCountry indexes the matches by country code.
func (s YearMatchSet) ByCountry() map[string]YearMatch {
	m := make(map[string]YearMatch, len(s.Matches))
	for _, ym := range s.Matches {
		m[ym.Country] = ym
	}
	return m
}

// MatchYear finds, for every peak, the worst report of the target year whose
// period overlaps the peak once re-projected onto the peak's reference year.
// At most one match is emitted per country; output is sorted by country.
func MatchYear(reports []Report, peaks []PeakRecord, year int, phase Phase) YearMatchSet {
	byCountryPeak := make(map[string]PeakRecord, len(peaks))
	for _, p := range peaks {
		byCountryPeak[p.Country] = p
	}

	candidates := make([]Report, 0)
	for _, r := range reports {
		if r.Year() != year || r.Phase != phase {
			continue
		}
		peak, ok := byCountryPeak[r.Country]
		if !ok {
			continue
		}
		if Reproject(r.Period, peak.ReferenceYear).Overlaps(peak.Interval) {
			candidates = append(candidates, r)
		}
	}

	best := selectBy(candidates, byCountry, preferWorstMatch)

	set := YearMatchSet{Year: year, Phase: phase, Matches: make([]YearMatch, 0, len(best))}
	matched := make(map[string]struct{}, len(best))
	for _, r := range best {
		matched[r.Country] = struct{}{}
		set.Matches = append(set.Matches, YearMatch{
			Country:      r.Country,
			Year:         year,
			Phase:        phase,
			ReportPeriod: r.Period,
			Count:        r.Count,
			Percentage:   r.Percentage,
			Population:   r.Population,
		})
	}
	sort.Slice(set.Matches, func(i, j int) bool { return set.Matches[i].Country < set.Matches[j].Country })

	for _, c := range sortedKeys(byCountryPeak) {
		if _, ok := matched[c]; !ok {
			set.Unmatched = append(set.Unmatched, c)
		}
	}
	return set
}
