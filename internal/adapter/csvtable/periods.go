package csvtable

import (
	"errors"
	"fmt"
	"io"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
)

// DecodeTypicalPeriods reads the reference-periods table: a Country column
// plus the named month-list columns. Other columns are ignored.
func DecodeTypicalPeriods(r io.Reader, columns []string) (domain.TypicalPeriods, error) {
	periods := domain.NewTypicalPeriods(columns...)

	cr := newReader(r)
	h, err := readHeader(cr, 0)
	if err != nil {
		return periods, err
	}
	if err := h.require(append([]string{colCountry}, columns...)...); err != nil {
		return periods, err
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return periods, fmt.Errorf("read row %d: %w", line, err)
		}
		country := h.get(row, colCountry)
		if country == "" {
			continue
		}
		for _, col := range columns {
			periods.Set(country, col, h.get(row, col))
		}
	}
	return periods, nil
}
