package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/config"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/pipeline"
)

func TestRootOptions_Apply(t *testing.T) {
	cfg := &config.Config{ReferenceYear: 2024, MatchYears: []int{2024}, Severities: []string{"3+"}, StorageBackend: "file"}
	opts := &rootOptions{referenceYear: 2023, years: "2023, 2022", severities: "4,5", backend: " S3 "}

	require.NoError(t, opts.apply(cfg))
	assert.Equal(t, 2023, cfg.ReferenceYear)
	assert.Equal(t, []int{2023, 2022}, cfg.MatchYears)
	assert.Equal(t, []string{"4", "5"}, cfg.Severities)
	assert.Equal(t, "s3", cfg.StorageBackend)

	err := (&rootOptions{years: "2023,next"}).apply(cfg)
	assert.ErrorContains(t, err, "--years")
}

func TestRootOptions_LoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("REFERENCE_YEAR=2022\nMATCH_YEARS=2022,2021\n"), 0o600))
	// godotenv does not override variables that are already set.
	t.Setenv("REFERENCE_YEAR", "")
	os.Unsetenv("REFERENCE_YEAR")
	t.Setenv("MATCH_YEARS", "2020")

	cfg, err := (&rootOptions{envFile: envFile}).loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2022, cfg.ReferenceYear)
	assert.Equal(t, []int{2020}, cfg.MatchYears)

	_, err = (&rootOptions{envFile: filepath.Join(dir, "absent.env")}).loadConfig()
	assert.NoError(t, err, "a missing dotenv file is not an error")

	_, err = (&rootOptions{envFile: envFile, backend: "ftp"}).loadConfig()
	assert.ErrorContains(t, err, "invalid config")
}

func TestParsePhases(t *testing.T) {
	phases, err := parsePhases([]string{"3+", "Phase 4", "4"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Phase{domain.Phase3Plus, domain.Phase4}, phases)

	_, err = parsePhases([]string{"3+", "severe"})
	assert.ErrorContains(t, err, "SEVERITIES")
}

func TestValidateTables(t *testing.T) {
	raws := []domain.RawRecord{
		{Row: 2, Country: "SDN", AnalysisDate: "Nov 2023", From: "2024-06-01", To: "2024-09-30", Phase: "3+", Number: "1", Percentage: "0.5", Population: "2"},
		{Row: 3, Country: "SOM", AnalysisDate: "Nov 2022", From: "2023-06-01", To: "2023-09-30", Phase: "3+", Number: "1", Percentage: "0.5", Population: "2"},
		{Row: 4, Country: "HTI", AnalysisDate: "someday", From: "2024-06-01", To: "2024-09-30", Phase: "3+", Number: "1", Percentage: "0.5", Population: "2"},
	}
	periods := domain.NewTypicalPeriods("period_long")
	periods.Set("SDN", "period_long", "June, July")
	periods.Set("SOM", "period_long", "Gu, Deyr")

	checks := validateTables(raws, periods, 2024, []domain.Phase{domain.Phase3Plus, domain.Phase5})
	require.Len(t, checks, 4)

	assert.False(t, checks[0].passed())
	assert.Contains(t, checks[0].errors[0], "row 4")

	assert.False(t, checks[1].passed())
	assert.Contains(t, checks[1].errors[0], "SOM period_long")

	assert.True(t, checks[2].passed())
	assert.Equal(t, []string{"SOM has no phase 3+ report ending in 2024"}, checks[2].notes)

	assert.False(t, checks[3].passed(), "no phase 5 peak at all")
}

func TestPrintReport(t *testing.T) {
	ok := &check{name: "good"}
	bad := &check{name: "bad"}
	bad.errorf("row %d broken", 7)
	bad.notef("something to know")

	var buf bytes.Buffer
	assert.False(t, printReport(&buf, []*check{ok, bad}, 12))
	out := buf.String()
	assert.Contains(t, out, "FAIL (1 errors)")
	assert.Contains(t, out, "Records: 12 input rows")
	assert.Contains(t, out, "  [1] row 7 broken")
	assert.Contains(t, out, "Note: something to know")
	assert.True(t, strings.HasSuffix(out, "Validation FAILED.\n"))

	buf.Reset()
	assert.True(t, printReport(&buf, []*check{ok}, 1))
	assert.Contains(t, buf.String(), "All validations passed.")
}

func TestRunCommand_FileBackend(t *testing.T) {
	root := t.TempDir()
	fixture, err := os.ReadFile("../../internal/adapter/csvtable/testdata/ipc_sample.csv")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ds-ufe-food-security"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ds-ufe-food-security", "ipc.csv"), fixture, 0o644))

	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_ROOT", root)
	t.Setenv("INPUT_KEY", "ipc.csv")
	t.Setenv("REFERENCE_PERIODS_KEY", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("COUNTRY_LOOKUP_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--env-file", "", "--reference-year", "2024", "--years", "2024,2023", "--severities", "3+"})
	require.NoError(t, cmd.Execute())

	var report pipeline.RunReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 4, report.RecordsRead)
	assert.Equal(t, 1, report.RecordsRejected)
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, 2, report.Summaries[0].Countries)

	written, err := filepath.Glob(filepath.Join(root, "ds-ufe-food-security", "annualized_ipc_summary_2024_3plus_*.csv"))
	require.NoError(t, err)
	require.Len(t, written, 1)
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "SDN,,2024,3+,Jun 2024 to Sep 2024")
}
