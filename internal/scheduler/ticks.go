package scheduler

import (
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronTicks drives the fund supervisor from a cron schedule.
type CronTicks struct {
	schedule string
	log      zerolog.Logger
}

var _ fund.TickSource = (*CronTicks)(nil)

// NewCronTicks validates schedule and returns a tick source for it.
func NewCronTicks(schedule string, log zerolog.Logger) (*CronTicks, error) {
	if _, err := ParseSchedule(schedule); err != nil {
		return nil, err
	}
	return &CronTicks{
		schedule: schedule,
		log:      log.With().Str("component", "ticks").Str("schedule", schedule).Logger(),
	}, nil
}

// Start implements fund.TickSource. Each start gets its own cron so that a
// stop never races a later start. A tick still running when the next one is
// due is skipped.
func (c *CronTicks) Start(tick func()) (func(), error) {
	sched, err := ParseSchedule(c.schedule)
	if err != nil {
		return nil, err
	}

	cr := cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.Recover(cronLogger{c.log}), cron.SkipIfStillRunning(cronLogger{c.log})),
	)
	cr.Schedule(sched, cron.FuncJob(tick))
	cr.Start()
	c.log.Info().Msg("Tick source started")

	return func() {
		// Stop returns at once; an in-flight tick finishes on its own.
		cr.Stop()
		c.log.Info().Msg("Tick source stopped")
	}, nil
}
