package domain

import (
	"context"
	"log/slog"
)

// CountryNamer resolves an ISO3 country code to a display name.
type CountryNamer interface {
	CountryName(ctx context.Context, code string) (string, error)
}

// EnrichWithCountryNames fills SummaryRow.CountryName. If namer is nil the
// summary is returned unchanged; a failed or empty lookup leaves that row's
// name empty and the rest of the summary is still enriched.
func EnrichWithCountryNames(ctx context.Context, sum Summary, namer CountryNamer, logger *slog.Logger) Summary {
	if namer == nil {
		return sum
	}

	rows := make([]SummaryRow, len(sum.Rows))
	copy(rows, sum.Rows)
	for i := range rows {
		name, err := namer.CountryName(ctx, rows[i].Country)
		if err != nil {
			logger.Warn("country name lookup failed",
				"country", rows[i].Country,
				"error", err,
			)
			continue
		}
		rows[i].CountryName = name
	}
	sum.Rows = rows
	return sum
}
