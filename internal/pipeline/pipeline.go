package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/observability"
)

// ErrRunInProgress is returned by Run when another run has not finished yet.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// maxLoggedRejects caps how many rejected rows are logged individually per run.
const maxLoggedRejects = 5

// ReportExtractor reads the raw IPC input table.
type ReportExtractor interface {
	ExtractReports(ctx context.Context) ([]domain.RawRecord, error)
}

// PeriodExtractor reads the reference-periods table.
type PeriodExtractor interface {
	ExtractPeriods(ctx context.Context) (domain.TypicalPeriods, error)
}

// SummaryLoader writes one summary to a destination.
type SummaryLoader interface {
	Name() string
	LoadSummary(ctx context.Context, sum domain.Summary) error
}

// Options are the run parameters shared by every run of a Pipeline.
type Options struct {
	ReferenceYear int
	Years         []int
	Phases        []domain.Phase
	LoadRetries   int
	Namer         domain.CountryNamer // nil disables country names
	Clock         clockwork.Clock     // nil means real time
}

// Validate checks every phase's summary parameters up front so a bad phase
// fails the run before anything is extracted.
func (o Options) Validate() error {
	if len(o.Phases) == 0 {
		return errors.New("at least one phase is required")
	}
	for _, ph := range o.Phases {
		params := domain.SummaryParams{ReferenceYear: o.ReferenceYear, Years: o.Years, Phase: ph}
		if err := params.Validate(); err != nil {
			return fmt.Errorf("phase %q: %w", ph, err)
		}
	}
	if o.LoadRetries < 0 {
		return errors.New("load retries must not be negative")
	}
	return nil
}

// Pipeline orchestrates one extract, summarize, load pass per Run.
type Pipeline struct {
	reports ReportExtractor
	periods PeriodExtractor
	loaders []SummaryLoader
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	initialBackoff time.Duration
	maxBackoff     time.Duration

	running sync.Mutex
	ready   atomic.Bool
	last    atomic.Pointer[RunReport]
}

// New creates a Pipeline with the given stages and observability. periods
// may be nil, in which case every overlap score is undefined.
func New(reports ReportExtractor, periods PeriodExtractor, loaders []SummaryLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Pipeline{
		reports:        reports,
		periods:        periods,
		loaders:        loaders,
		opts:           opts,
		logger:         logger,
		metrics:        metrics,
		clock:          clk,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// CheckReadiness returns nil once a run has completed successfully, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no summary has been produced yet")
	}
	return nil
}

// LastRun returns the report of the most recent successful run.
func (p *Pipeline) LastRun() (RunReport, bool) {
	r := p.last.Load()
	if r == nil {
		return RunReport{}, false
	}
	return *r, true
}

// Run extracts the input tables, computes one summary per phase and loads
// every summary into every loader. All summaries are computed before any is
// written, so a computation failure writes nothing. Concurrent calls return
// ErrRunInProgress.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	if !p.running.TryLock() {
		p.metrics.Runs.WithLabelValues("skipped").Inc()
		return RunReport{}, ErrRunInProgress
	}
	defer p.running.Unlock()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	start := p.clock.Now()
	p.logger.Info("pipeline run started",
		"reference_year", p.opts.ReferenceYear,
		"years", p.opts.Years,
		"phases", p.opts.Phases,
	)

	report, err := p.run(ctx)
	report.StartedAt = start.UTC()
	report.FinishedAt = p.clock.Now().UTC()
	p.metrics.RunDuration.Observe(report.FinishedAt.Sub(start).Seconds())

	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		p.logger.Error("pipeline run failed", "error", err, "duration", report.FinishedAt.Sub(report.StartedAt))
		return report, err
	}

	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
	p.last.Store(&report)
	p.ready.Store(true)
	p.logger.Info("pipeline run finished",
		"summaries", len(report.Summaries),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (RunReport, error) {
	var report RunReport
	if err := p.opts.Validate(); err != nil {
		return report, fmt.Errorf("invalid run options: %w", err)
	}

	raws, err := p.reports.ExtractReports(ctx)
	if err != nil {
		return report, fmt.Errorf("extract reports: %w", err)
	}
	report.RecordsRead = len(raws)
	p.metrics.RecordsRead.Add(float64(len(raws)))

	normalized := domain.NormalizeRecords(raws)
	report.RecordsRejected = len(normalized.Rejected)
	p.logRejects(normalized.Rejected)

	periods := domain.NewTypicalPeriods()
	if p.periods != nil {
		periods, err = p.periods.ExtractPeriods(ctx)
		if err != nil {
			return report, fmt.Errorf("extract reference periods: %w", err)
		}
	}

	summaries := make([]domain.Summary, 0, len(p.opts.Phases))
	for _, phase := range p.opts.Phases {
		sum, err := domain.Summarize(normalized.Reports, domain.SummaryParams{
			ReferenceYear: p.opts.ReferenceYear,
			Years:         p.opts.Years,
			Phase:         phase,
		}, periods)
		if err != nil {
			return report, fmt.Errorf("summarize phase %s: %w", phase, err)
		}
		p.observeSummary(sum)
		summaries = append(summaries, domain.EnrichWithCountryNames(ctx, sum, p.opts.Namer, p.logger))
	}

	for _, sum := range summaries {
		for _, l := range p.loaders {
			if err := p.loadWithRetry(ctx, l, sum); err != nil {
				return report, err
			}
		}
		report.Summaries = append(report.Summaries, newSummaryReport(sum))
	}
	return report, nil
}

func (p *Pipeline) logRejects(rejected []*domain.RecordError) {
	if len(rejected) == 0 {
		return
	}
	p.metrics.RecordsRejected.Add(float64(len(rejected)))
	p.logger.Warn("rejected malformed rows", "count", len(rejected))
	for i, r := range rejected {
		if i == maxLoggedRejects {
			break
		}
		p.logger.Warn("rejected row", "row", r.Row, "field", r.Field, "value", r.Value, "error", r.Err)
	}
}

// observeSummary logs data gaps and updates the per-phase gauges.
func (p *Pipeline) observeSummary(sum domain.Summary) {
	phase := string(sum.Phase)
	p.metrics.Peaks.WithLabelValues(phase).Set(float64(len(sum.Rows)))
	p.metrics.MissingPeaks.WithLabelValues(phase).Set(float64(len(sum.MissingPeaks)))

	if len(sum.MissingPeaks) > 0 {
		p.logger.Warn("countries without reports in reference year",
			"phase", phase,
			"reference_year", sum.ReferenceYear,
			"count", len(sum.MissingPeaks),
			"countries", sum.MissingPeaks,
		)
	}
	for _, y := range sum.Years {
		unmatched := sum.Unmatched[y]
		p.metrics.Matches.WithLabelValues(phase, strconv.Itoa(y)).Set(float64(len(sum.Rows) - len(unmatched)))
		if len(unmatched) > 0 {
			p.logger.Warn("countries without a report overlapping their peak",
				"phase", phase,
				"year", y,
				"count", len(unmatched),
				"countries", unmatched,
			)
		}
	}
	for _, row := range sum.Rows {
		for _, o := range row.Overlaps {
			if !o.Defined() {
				p.logger.Debug("overlap score undefined",
					"country", row.Country,
					"column", o.Column,
					"reason", o.Err,
				)
			}
		}
	}
}

// loadWithRetry retries a failed load with exponential backoff, up to
// LoadRetries extra attempts.
func (p *Pipeline) loadWithRetry(ctx context.Context, l SummaryLoader, sum domain.Summary) error {
	backoff := p.initialBackoff
	var err error
	for attempt := 0; attempt <= p.opts.LoadRetries; attempt++ {
		if attempt > 0 {
			p.metrics.LoadRetries.Inc()
			if !retry.SleepWithContext(ctx, backoff) {
				return fmt.Errorf("load %s summary to %s: %w", sum.Phase, l.Name(), ctx.Err())
			}
			backoff = retry.NextBackoff(backoff, p.maxBackoff)
		}
		if err = l.LoadSummary(ctx, sum); err == nil {
			p.metrics.SummariesLoaded.WithLabelValues(l.Name()).Inc()
			return nil
		}
		p.logger.Error("load summary failed",
			"sink", l.Name(),
			"phase", sum.Phase,
			"attempt", attempt+1,
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("load %s summary to %s: %w", sum.Phase, l.Name(), err)
}
