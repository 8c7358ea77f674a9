// Package domain models IPC (Integrated Food Security Phase Classification)
// country-level reports and the peak hunger period analysis built on them.
//
// # Data Source
//
// Reports come from the HDX "Global acute food insecurity country data"
// long-format CSV (ipc_global_national_long.csv). Each row is one country,
// one phase and one validity window of one analysis. The file carries an HXL
// tag row directly under the header; the CSV adapter drops it before rows
// reach this package.
//
// # IPC Data Conventions
//
// Phase:
//
//	"1" through "5" are the individual IPC phases. "3+" aggregates phases
//	3, 4 and 5 and is the default severity for CERF allocations.
//
// Validity period:
//
//	"current" is the observed situation at analysis time. "projected" and
//	"second_projected" are forecasts for later windows. The same window is
//	often re-published by later analyses; those rows are duplicates of one
//	underlying period, not independent observations.
//
// Dates:
//
//	From/To bound the validity window (inclusive). "Date of analysis" is
//	published at month precision, e.g. "Nov 2023".
//
// Percentage is the share of the analysed population in the phase. HDX
// publishes it in [0,1]; values up to 100 are accepted and kept as given.
//
// # Year Attribution
//
// A report belongs to the calendar year of its To date. A window running
// Nov 2023 to Feb 2024 is a 2024 report.
//
// # Peak Hunger Period
//
// For a reference year, the peak hunger period of a country is the window
// with the highest percentage after duplicate windows have been collapsed to
// their latest analysis. Other years are compared by re-projecting their
// windows onto the reference year's calendar (see [Reproject]) and keeping
// the worst window that overlaps the peak.
//
// Matching treats window ends at month granularity: a re-projected window
// always runs through the last day of its end month.
package domain
