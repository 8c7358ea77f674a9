package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/adapter/countries"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/adapter/csvtable"
	kafkaadapter "github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/adapter/kafka"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/adapter/storage"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/config"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/observability"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/pipeline"
)

// app holds the wired pipeline and everything that must be closed with it.
type app struct {
	pipeline *pipeline.Pipeline
	reports  *csvtable.ReportSource
	periods  *csvtable.PeriodSource
	closers  []io.Closer
	logger   *slog.Logger
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*app, error) {
	phases, err := parsePhases(cfg.Severities)
	if err != nil {
		return nil, err
	}

	blob, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	a := &app{
		reports: csvtable.NewReportSource(blob, storage.Key(cfg.StoragePrefix, cfg.InputKey), cfg.InputSkipRows),
		periods: csvtable.NewPeriodSource(blob, periodsKey(cfg), cfg.ReferencePeriodColumns, logger),
		logger:  logger,
	}

	loaders := []pipeline.SummaryLoader{
		csvtable.NewSummarySink(blob, cfg.StoragePrefix, cfg.OutputName, logger),
	}
	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, w)
		a.closers = append(a.closers, w)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}

	// Country names are feature-flagged via COUNTRY_LOOKUP_ENABLED.
	var namer domain.CountryNamer
	if cfg.CountryLookupEnabled {
		client := countries.NewClient(cfg.CountryLookupURL, cfg.CountryLookupTimeout, metrics, logger)
		namer = countries.NewCachedNamer(client, cfg.CountryLookupCacheSize, metrics)
		metrics.CountryLookupEnabled.Set(1)
		logger.Info("country name lookup enabled", "cache_size", cfg.CountryLookupCacheSize, "timeout", cfg.CountryLookupTimeout)
	} else {
		logger.Info("country name lookup disabled")
	}

	a.pipeline = pipeline.New(
		a.reports,
		a.periods,
		loaders,
		pipeline.Options{
			ReferenceYear: cfg.ReferenceYear,
			Years:         cfg.MatchYears,
			Phases:        phases,
			LoadRetries:   cfg.LoadRetries,
			Namer:         namer,
		},
		logger,
		metrics,
	)
	return a, nil
}

// periodsKey returns "" when the reference-periods table is disabled.
func periodsKey(cfg *config.Config) string {
	if cfg.ReferencePeriodsKey == "" {
		return ""
	}
	return storage.Key(cfg.StoragePrefix, cfg.ReferencePeriodsKey)
}

func parsePhases(severities []string) ([]domain.Phase, error) {
	phases := make([]domain.Phase, 0, len(severities))
	seen := make(map[domain.Phase]bool, len(severities))
	for _, s := range severities {
		ph, err := domain.ParsePhase(s)
		if err != nil {
			return nil, fmt.Errorf("invalid SEVERITIES: %w", err)
		}
		if !seen[ph] {
			seen[ph] = true
			phases = append(phases, ph)
		}
	}
	return phases, nil
}
