package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// RunScheduled runs the pipeline on the cron schedule spec until ctx is
// cancelled. If runAtStart is set, one run starts immediately. Runs that
// fire while a previous run is still active are skipped.
func (p *Pipeline) RunScheduled(ctx context.Context, spec string, runAtStart bool) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { p.runLogged(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c.Start()
	p.logger.Info("pipeline scheduled", "schedule", spec)

	if runAtStart {
		p.runLogged(ctx)
	}

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (p *Pipeline) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := p.Run(ctx); errors.Is(err, ErrRunInProgress) {
		p.logger.Info("scheduled run skipped, previous run still active")
	}
}
