// Package csvtable decodes the IPC input and reference-period tables and
// encodes the peak hunger summary table.
package csvtable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
)

// Input table column titles.
const (
	colCountry        = "Country"
	colValidityPeriod = "Validity period"
	colAnalysisDate   = "Date of analysis"
	colFrom           = "From"
	colTo             = "To"
	colPhase          = "Phase"
	colNumber         = "Number"
	colPercentage     = "Percentage"
	colPopulation     = "Total country population"
)

var requiredReportColumns = []string{
	colCountry, colAnalysisDate, colFrom, colTo, colPhase, colNumber, colPercentage, colPopulation,
}

// header maps normalized column titles to their index.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, title := range row {
		key := normalizeTitle(title)
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

func (h header) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := h[normalizeTitle(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// get returns the trimmed cell for col, or "" when the column or cell is absent.
func (h header) get(row []string, col string) string {
	i, ok := h[normalizeTitle(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// readHeader reads the header row and discards skipRows rows after it.
func readHeader(cr *csv.Reader, skipRows int) (header, error) {
	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := 0; i < skipRows; i++ {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("skip row %d: %w", i+2, err)
		}
	}
	return newHeader(first), nil
}

// DecodeReports reads the IPC long-format table. The first row is the
// header; skipRows rows after it (e.g. an HXL tag row) are ignored. Row
// numbers on the returned records are 1-based file lines.
func DecodeReports(r io.Reader, skipRows int) ([]domain.RawRecord, error) {
	cr := newReader(r)
	h, err := readHeader(cr, skipRows)
	if err != nil {
		return nil, err
	}
	if err := h.require(requiredReportColumns...); err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	line := 1 + skipRows
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}
		out = append(out, domain.RawRecord{
			Row:            line,
			Country:        h.get(row, colCountry),
			ValidityPeriod: h.get(row, colValidityPeriod),
			AnalysisDate:   h.get(row, colAnalysisDate),
			From:           h.get(row, colFrom),
			To:             h.get(row, colTo),
			Phase:          h.get(row, colPhase),
			Number:         h.get(row, colNumber),
			Percentage:     h.get(row, colPercentage),
			Population:     h.get(row, colPopulation),
		})
	}
	return out, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
