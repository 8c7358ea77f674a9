package domain

import "sort"

// PeakRecord is the reference interval selected for one country.
type PeakRecord struct {
	Country       string   `json:"country"`
	ReferenceYear int      `json:"reference_year"`
	Interval      Interval `json:"reference_period"`
	Phase         Phase    `json:"phase"`
	Percentage    float64  `json:"percentage"`
}

// PeakSelection is the result of SelectPeaks. Missing lists countries that
// appear somewhere in the input but have no qualifying report for the
// reference year and phase.
type PeakSelection struct {
	ReferenceYear int
	Phase         Phase
	Peaks         []PeakRecord
	Missing       []string
}

// ByCountry indexes the peaks by country code.
func (s PeakSelection) ByCountry() map[string]PeakRecord {
	m := make(map[string]PeakRecord, len(s.Peaks))
	for _, p := range s.Peaks {
		m[p.Country] = p
	}
	return m
}

// SelectPeaks finds each country's peak hunger period in refYear.
//
// Reports are attributed to the year of their period end. Re-publications
// of the same (country, from, to) period collapse to the latest analysis;
// the surviving period with the highest percentage becomes the peak. Output
// is sorted by country.
func SelectPeaks(reports []Report, refYear int, phase Phase) PeakSelection {
	candidates := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Year() == refYear && r.Phase == phase {
			candidates = append(candidates, r)
		}
	}

	periods := selectBy(candidates, byPeriod, preferLatestAnalysis)
	worst := selectBy(periods, byCountry, preferWorstPeriod)

	sel := PeakSelection{
		ReferenceYear: refYear,
		Phase:         phase,
		Peaks:         make([]PeakRecord, 0, len(worst)),
	}
	found := make(map[string]struct{}, len(worst))
	for _, r := range worst {
		found[r.Country] = struct{}{}
		sel.Peaks = append(sel.Peaks, PeakRecord{
			Country:       r.Country,
			ReferenceYear: refYear,
			Interval:      r.Period,
			Phase:         phase,
			Percentage:    r.Percentage,
		})
	}
	sort.Slice(sel.Peaks, func(i, j int) bool { return sel.Peaks[i].Country < sel.Peaks[j].Country })

	for _, c := range countriesOf(reports) {
		if _, ok := found[c]; !ok {
			sel.Missing = append(sel.Missing, c)
		}
	}
	return sel
}
