package csvtable

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
)

// Header returns the output column titles for sum, in order.
func Header(sum domain.Summary) []string {
	cols := []string{"Country", "Country Name", "Reference Year", "Phase", "Peak Hunger Period"}
	for i := 0; i+1 < len(sum.Years); i++ {
		cols = append(cols, fmt.Sprintf("%d to %d Change", sum.Years[i+1], sum.Years[i]))
	}
	for _, suffix := range []string{"Percentage", "Number", "Total Pop", "Report Period"} {
		for _, y := range sum.Years {
			cols = append(cols, fmt.Sprintf("%d %s", y, suffix))
		}
	}
	for _, c := range sum.OverlapColumns {
		cols = append(cols, titleCase(c)+" Overlap")
	}
	return cols
}

// EncodeSummary writes sum as CSV with a header row. Periods are written as
// "Mon YYYY to Mon YYYY"; missing matches, deltas and undefined overlap
// scores are written as empty cells.
func EncodeSummary(w io.Writer, sum domain.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(sum)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range sum.Rows {
		if err := cw.Write(encodeRow(row)); err != nil {
			return fmt.Errorf("write row %s: %w", row.Country, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeRow(row domain.SummaryRow) []string {
	rec := []string{
		row.Country,
		row.CountryName,
		strconv.Itoa(row.ReferenceYear),
		string(row.Phase),
		row.ReferencePeriod.Label(),
	}
	for _, c := range row.Changes {
		rec = append(rec, formatDelta(c.Delta))
	}

	cell := func(f func(m *domain.YearMatch) string) {
		for _, y := range row.Years {
			if y.Match == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, f(y.Match))
		}
	}
	cell(func(m *domain.YearMatch) string { return strconv.FormatFloat(m.Percentage, 'f', -1, 64) })
	cell(func(m *domain.YearMatch) string { return strconv.FormatInt(m.Count, 10) })
	cell(func(m *domain.YearMatch) string { return strconv.FormatInt(m.Population, 10) })
	cell(func(m *domain.YearMatch) string { return m.ReportPeriod.Label() })

	for _, o := range row.Overlaps {
		if !o.Defined() {
			rec = append(rec, "")
			continue
		}
		rec = append(rec, strconv.FormatFloat(*o.Fraction, 'f', -1, 64))
	}
	return rec
}

func formatDelta(d *float64) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *d)
}

// titleCase turns "period_long" into "Period Long".
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
