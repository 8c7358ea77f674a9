package csvtable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/adapter/storage"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
)

// ReportSource reads the IPC input table from blob storage.
// It implements pipeline.ReportExtractor.
type ReportSource struct {
	blob     storage.Blob
	key      string
	skipRows int
}

// NewReportSource reads key from blob, skipping skipRows rows after the header.
func NewReportSource(blob storage.Blob, key string, skipRows int) *ReportSource {
	return &ReportSource{blob: blob, key: key, skipRows: skipRows}
}

// ExtractReports downloads and decodes the input table.
func (s *ReportSource) ExtractReports(ctx context.Context) ([]domain.RawRecord, error) {
	data, err := s.blob.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load input table: %w", err)
	}
	raws, err := DecodeReports(bytes.NewReader(data), s.skipRows)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return raws, nil
}

// PeriodSource reads the reference-periods table from blob storage.
// It implements pipeline.PeriodExtractor.
type PeriodSource struct {
	blob    storage.Blob
	key     string
	columns []string
	logger  *slog.Logger
}

// NewPeriodSource reads the given month-list columns from key. An empty key
// disables the table.
func NewPeriodSource(blob storage.Blob, key string, columns []string, logger *slog.Logger) *PeriodSource {
	return &PeriodSource{blob: blob, key: key, columns: columns, logger: logger}
}

// ExtractPeriods returns the reference-periods table. A missing table is not
// an error: every overlap score for that run is undefined.
func (s *PeriodSource) ExtractPeriods(ctx context.Context) (domain.TypicalPeriods, error) {
	if s.key == "" {
		return domain.NewTypicalPeriods(), nil
	}
	data, err := s.blob.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("reference periods table not found, overlap scores will be empty", "key", s.key)
		return domain.NewTypicalPeriods(s.columns...), nil
	}
	if err != nil {
		return domain.TypicalPeriods{}, fmt.Errorf("load reference periods: %w", err)
	}
	periods, err := DecodeTypicalPeriods(bytes.NewReader(data), s.columns)
	if err != nil {
		return domain.TypicalPeriods{}, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return periods, nil
}

// SummarySink writes summary tables to blob storage.
// It implements pipeline.SummaryLoader.
type SummarySink struct {
	blob   storage.Blob
	prefix string
	name   string
	logger *slog.Logger
}

// NewSummarySink writes under prefix with file names starting with name.
func NewSummarySink(blob storage.Blob, prefix, name string, logger *slog.Logger) *SummarySink {
	return &SummarySink{blob: blob, prefix: prefix, name: name, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *SummarySink) Name() string { return "csv" }

// OutputKey returns <prefix>/<name>_<refyear>_<phase>_<YYYY-MM-DD>.csv,
// dated by the summary's GeneratedAt.
func (s *SummarySink) OutputKey(sum domain.Summary) string {
	phase := strings.ReplaceAll(string(sum.Phase), "+", "plus")
	file := fmt.Sprintf("%s_%d_%s_%s.csv", s.name, sum.ReferenceYear, phase, sum.GeneratedAt.Format(time.DateOnly))
	return storage.Key(s.prefix, file)
}

// LoadSummary encodes and uploads one summary.
func (s *SummarySink) LoadSummary(ctx context.Context, sum domain.Summary) error {
	var buf bytes.Buffer
	if err := EncodeSummary(&buf, sum); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	key := s.OutputKey(sum)
	if err := s.blob.Put(ctx, key, buf.Bytes()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	s.logger.Info("summary written", "key", key, "rows", len(sum.Rows), "bytes", buf.Len())
	return nil
}
