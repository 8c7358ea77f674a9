package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/observability"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/pipeline"
)

// --- mocks ---

type stubReports struct {
	raws  []domain.RawRecord
	err   error
	calls int
}

func (s *stubReports) ExtractReports(_ context.Context) ([]domain.RawRecord, error) {
	s.calls++
	return s.raws, s.err
}

type stubPeriods struct {
	periods domain.TypicalPeriods
	err     error
}

func (s *stubPeriods) ExtractPeriods(_ context.Context) (domain.TypicalPeriods, error) {
	return s.periods, s.err
}

type recordingLoader struct {
	mu       sync.Mutex
	failures int // number of calls that fail before succeeding
	err      error
	calls    int
	loaded   []domain.Summary
}

func (l *recordingLoader) Name() string { return "recorder" }

func (l *recordingLoader) LoadSummary(_ context.Context, sum domain.Summary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls <= l.failures {
		return l.err
	}
	l.loaded = append(l.loaded, sum)
	return nil
}

// blockingLoader holds a run open until release is closed.
type blockingLoader struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *blockingLoader) Name() string { return "blocking" }

func (l *blockingLoader) LoadSummary(ctx context.Context, _ domain.Summary) error {
	l.once.Do(func() { close(l.entered) })
	select {
	case <-l.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type mapNamer map[string]string

func (n mapNamer) CountryName(_ context.Context, code string) (string, error) {
	return n[code], nil
}

// --- fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func raw(row int, country, analysis, from, to, phase, pct string) domain.RawRecord {
	return domain.RawRecord{
		Row:            row,
		Country:        country,
		ValidityPeriod: "current",
		AnalysisDate:   analysis,
		From:           from,
		To:             to,
		Phase:          phase,
		Number:         "1000",
		Percentage:     pct,
		Population:     "10000",
	}
}

func sampleRecords() []domain.RawRecord {
	return []domain.RawRecord{
		raw(2, "SDN", "Nov 2023", "2024-06-01", "2024-09-30", "3+", "0.54"),
		raw(3, "SDN", "Nov 2022", "2023-06-01", "2023-09-30", "3+", "0.42"),
		raw(4, "SOM", "Jan 2024", "2024-04-01", "2024-06-30", "3+", "0.2"),
		raw(5, "HTI", "Mar 2024", "2024-03-01", "2024-06-30", "Phase 9", "0.1"),
	}
}

func samplePeriods() *stubPeriods {
	periods := domain.NewTypicalPeriods("period_long")
	periods.Set("SDN", "period_long", "June, July, August, September")
	return &stubPeriods{periods: periods}
}

func defaultOptions() pipeline.Options {
	return pipeline.Options{
		ReferenceYear: 2024,
		Years:         []int{2024, 2023},
		Phases:        []domain.Phase{domain.Phase3Plus},
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	reports := &stubReports{raws: sampleRecords()}
	loader := &recordingLoader{}
	metrics := observability.NewMetricsForTesting()
	start := time.Date(2024, 11, 5, 8, 0, 0, 0, time.UTC)
	opts := defaultOptions()
	opts.Clock = clockwork.NewFakeClockAt(start)

	p := pipeline.New(reports, samplePeriods(), []pipeline.SummaryLoader{loader}, opts, discardLogger(), metrics)
	require.Error(t, p.CheckReadiness(context.Background()), "not ready before the first run")

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, start, report.StartedAt)
	assert.Equal(t, 4, report.RecordsRead)
	assert.Equal(t, 1, report.RecordsRejected)
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, 2, report.Summaries[0].Countries)
	assert.Equal(t, []pipeline.UnmatchedYear{{Year: 2023, Countries: []string{"SOM"}}}, report.Summaries[0].Unmatched)

	require.Len(t, loader.loaded, 1)
	sum := loader.loaded[0]
	assert.Equal(t, domain.Phase3Plus, sum.Phase)
	require.Len(t, sum.Rows, 2)
	assert.Equal(t, "SDN", sum.Rows[0].Country)
	require.NotNil(t, sum.Rows[0].Changes[0].Delta)
	assert.InDelta(t, 0.12, *sum.Rows[0].Changes[0].Delta, 1e-9)
	require.True(t, sum.Rows[0].Overlaps[0].Defined())
	assert.InDelta(t, 1.0, *sum.Rows[0].Overlaps[0].Fraction, 1e-9)

	require.NoError(t, p.CheckReadiness(context.Background()))
	last, ok := p.LastRun()
	require.True(t, ok)
	assert.Equal(t, report, last)

	assert.InDelta(t, 4, testutil.ToFloat64(metrics.RecordsRead), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RecordsRejected), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Runs.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SummariesLoaded.WithLabelValues("recorder")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Peaks.WithLabelValues("3+")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Matches.WithLabelValues("3+", "2023")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
	assert.InDelta(t, float64(start.Unix()), testutil.ToFloat64(metrics.LastSuccess), 0)
}

func TestPipeline_Run_EverySummaryToEveryLoader(t *testing.T) {
	first, second := &recordingLoader{}, &recordingLoader{}
	opts := defaultOptions()
	opts.Phases = []domain.Phase{domain.Phase3Plus, domain.Phase4}

	p := pipeline.New(&stubReports{raws: sampleRecords()}, nil, []pipeline.SummaryLoader{first, second}, opts,
		discardLogger(), observability.NewMetricsForTesting())

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Summaries, 2)
	assert.Equal(t, 0, report.Summaries[1].Countries)
	assert.Equal(t, []string{"SDN", "SOM"}, report.Summaries[1].MissingPeaks)

	for _, l := range []*recordingLoader{first, second} {
		require.Len(t, l.loaded, 2)
		assert.Equal(t, domain.Phase3Plus, l.loaded[0].Phase)
		assert.Equal(t, domain.Phase4, l.loaded[1].Phase)
		assert.Empty(t, l.loaded[0].OverlapColumns, "no period source means no overlap columns")
	}
}

func TestPipeline_Run_InvalidOptionsWriteNothing(t *testing.T) {
	reports := &stubReports{raws: sampleRecords()}
	loader := &recordingLoader{}
	metrics := observability.NewMetricsForTesting()
	opts := defaultOptions()
	opts.Phases = []domain.Phase{domain.Phase3Plus, "9"}

	p := pipeline.New(reports, nil, []pipeline.SummaryLoader{loader}, opts, discardLogger(), metrics)
	_, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run options")
	assert.Zero(t, reports.calls)
	assert.Empty(t, loader.loaded)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Runs.WithLabelValues("error")), 0)
}

func TestPipeline_Run_ExtractErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		reports *stubReports
		periods *stubPeriods
		wantMsg string
	}{
		{"reports", &stubReports{err: boom}, samplePeriods(), "extract reports"},
		{"periods", &stubReports{raws: sampleRecords()}, &stubPeriods{err: boom}, "extract reference periods"},
		{"missing column", &stubReports{err: domain.ErrMissingColumn}, samplePeriods(), "extract reports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &recordingLoader{}
			p := pipeline.New(tt.reports, tt.periods, []pipeline.SummaryLoader{loader}, defaultOptions(),
				discardLogger(), observability.NewMetricsForTesting())

			_, err := p.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Empty(t, loader.loaded)
			assert.Error(t, p.CheckReadiness(context.Background()))
			_, ok := p.LastRun()
			assert.False(t, ok)
		})
	}
}

func TestPipeline_Run_RetriesFailedLoad(t *testing.T) {
	loader := &recordingLoader{failures: 1, err: errors.New("transient")}
	metrics := observability.NewMetricsForTesting()
	opts := defaultOptions()
	opts.LoadRetries = 2

	p := pipeline.New(&stubReports{raws: sampleRecords()}, nil, []pipeline.SummaryLoader{loader}, opts, discardLogger(), metrics)
	_, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
	assert.Len(t, loader.loaded, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LoadRetries), 0)
}

func TestPipeline_Run_LoadFailsAfterRetries(t *testing.T) {
	sinkErr := errors.New("bucket unavailable")
	loader := &recordingLoader{failures: 10, err: sinkErr}

	p := pipeline.New(&stubReports{raws: sampleRecords()}, nil, []pipeline.SummaryLoader{loader}, defaultOptions(),
		discardLogger(), observability.NewMetricsForTesting())
	_, err := p.Run(context.Background())

	require.ErrorIs(t, err, sinkErr)
	assert.Contains(t, err.Error(), "recorder")
	assert.Equal(t, 1, loader.calls)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_RetryStopsOnCancel(t *testing.T) {
	loader := &recordingLoader{failures: 10, err: errors.New("down")}
	opts := defaultOptions()
	opts.LoadRetries = 5

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := pipeline.New(&stubReports{raws: sampleRecords()}, nil, []pipeline.SummaryLoader{loader}, opts,
		discardLogger(), observability.NewMetricsForTesting())
	_, err := p.Run(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, loader.calls)
}

func TestPipeline_Run_SkipsOverlappingRun(t *testing.T) {
	loader := &blockingLoader{entered: make(chan struct{}), release: make(chan struct{})}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&stubReports{raws: sampleRecords()}, nil, []pipeline.SummaryLoader{loader}, defaultOptions(), discardLogger(), metrics)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		done <- err
	}()

	select {
	case <-loader.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never reached the loader")
	}

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, pipeline.ErrRunInProgress)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Runs.WithLabelValues("skipped")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineRunning), 0)

	close(loader.release)
	require.NoError(t, <-done)
}

func TestPipeline_Run_CountryNames(t *testing.T) {
	loader := &recordingLoader{}
	opts := defaultOptions()
	opts.Namer = mapNamer{"SDN": "Sudan"}

	p := pipeline.New(&stubReports{raws: sampleRecords()}, nil, []pipeline.SummaryLoader{loader}, opts,
		discardLogger(), observability.NewMetricsForTesting())
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	rows := loader.loaded[0].Rows
	assert.Equal(t, "Sudan", rows[0].CountryName)
	assert.Empty(t, rows[1].CountryName)
}

func TestPipeline_RunScheduled(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		p := pipeline.New(&stubReports{}, nil, nil, defaultOptions(), discardLogger(), observability.NewMetricsForTesting())
		err := p.RunScheduled(context.Background(), "not a schedule", false)
		assert.ErrorContains(t, err, "invalid schedule")
	})

	t.Run("runs at start and stops on cancel", func(t *testing.T) {
		loader := &recordingLoader{}
		p := pipeline.New(&stubReports{raws: sampleRecords()}, nil, []pipeline.SummaryLoader{loader}, defaultOptions(),
			discardLogger(), observability.NewMetricsForTesting())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.RunScheduled(ctx, "@every 1h", true) }()

		assert.Eventually(t, func() bool {
			_, ok := p.LastRun()
			return ok
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	})
}
