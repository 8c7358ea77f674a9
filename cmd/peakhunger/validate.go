package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/observability"
)

// errValidationFailed makes the command exit non-zero after the report has
// been printed.
var errValidationFailed = errors.New("validation failed")

// check tracks pass/fail for one validation step. Notes are informational
// and never fail the check.
type check struct {
	name   string
	errors []string
	notes  []string
}

func (c *check) errorf(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *check) notef(format string, args ...any) {
	c.notes = append(c.notes, fmt.Sprintf(format, args...))
}

func (c *check) passed() bool { return len(c.errors) == 0 }

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the input and reference-period tables without writing output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)
			metrics := observability.NewMetrics()

			a, err := build(cmd.Context(), cfg, logger, metrics)
			if err != nil {
				return err
			}
			defer a.close()

			raws, err := a.reports.ExtractReports(cmd.Context())
			if err != nil {
				return err
			}
			periods, err := a.periods.ExtractPeriods(cmd.Context())
			if err != nil {
				return err
			}
			phases, err := parsePhases(cfg.Severities)
			if err != nil {
				return err
			}

			checks := validateTables(raws, periods, cfg.ReferenceYear, phases)
			if !printReport(cmd.OutOrStdout(), checks, len(raws)) {
				return errValidationFailed
			}
			return nil
		},
	}
}

// validateTables runs every check over the decoded input tables.
func validateTables(raws []domain.RawRecord, periods domain.TypicalPeriods, refYear int, phases []domain.Phase) []*check {
	normalized := domain.NormalizeRecords(raws)

	rows := &check{name: "Input rows normalize"}
	for _, rej := range normalized.Rejected {
		rows.errorf("%v", rej)
	}

	months := &check{name: "Reference period month lists"}
	for _, country := range periods.Countries() {
		for _, col := range periods.Columns {
			v, ok := periods.Lookup(country, col)
			if !ok || strings.TrimSpace(v) == "" {
				continue
			}
			if _, err := domain.ParseMonthList(v); err != nil {
				months.errorf("%s %s: %v", country, col, err)
			}
		}
	}
	if len(periods.Columns) > 0 && periods.Len() == 0 {
		months.notef("reference periods table is empty or missing")
	}

	checks := []*check{rows, months}
	for _, ph := range phases {
		coverage := &check{name: fmt.Sprintf("Reference year %d coverage, phase %s", refYear, ph)}
		sel := domain.SelectPeaks(normalized.Reports, refYear, ph)
		if len(sel.Peaks) == 0 {
			coverage.errorf("no country has a phase %s report ending in %d", ph, refYear)
		}
		for _, c := range sel.Missing {
			coverage.notef("%s has no phase %s report ending in %d", c, ph, refYear)
		}
		checks = append(checks, coverage)
	}
	return checks
}

// printReport writes the check table and details, and reports whether
// every check passed.
func printReport(w io.Writer, checks []*check, records int) bool {
	fmt.Fprintln(w, "=== IPC Input Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, c := range checks {
		status := "PASS"
		if !c.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(c.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-48s %s\n", c.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d input rows\n", records)

	for _, c := range checks {
		if c.passed() && len(c.notes) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", c.name)
		for i, e := range c.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
		for _, n := range c.notes {
			fmt.Fprintf(w, "  Note: %s\n", n)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
