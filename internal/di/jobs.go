// Package di provides dependency injection for scheduler jobs.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/fundcore/internal/config"
	"github.com/aristath/fundcore/internal/reliability"
	"github.com/aristath/fundcore/internal/scheduler"
	"github.com/rs/zerolog"
)

// JobInstances holds the registered jobs for manual triggering.
type JobInstances struct {
	Maintenance  scheduler.Job
	WALCheck     scheduler.Job
	AlertCleanup scheduler.Job
	Backup       scheduler.Job // nil unless backups are enabled
}

type scheduledJob struct {
	schedule string
	job      scheduler.Job
}

// RegisterJobs creates the scheduler and registers the maintenance jobs.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{
		Maintenance:  reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log),
		WALCheck:     scheduler.NewCheckWALCheckpointsJob(container.Databases(), log),
		AlertCleanup: scheduler.NewAlertCleanupJob(container.Risk, log),
	}

	if cfg.Backup.Enabled {
		store, err := reliability.NewS3Client(context.Background(), cfg.Backup.S3, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create backup store: %w", err)
		}
		container.Backup = reliability.NewBackupService(
			store,
			container.Databases(),
			cfg.Fund.Supervisor.FundID,
			cfg.DataDir,
			log,
		)
		instances.Backup = reliability.NewBackupJob(container.Backup, cfg.Backup.RetentionDays, log)
	}

	schedules := []scheduledJob{
		{cfg.Schedules.Maintenance, instances.Maintenance},
		{cfg.Schedules.WALCheck, instances.WALCheck},
		{cfg.Schedules.AlertCleanup, instances.AlertCleanup},
	}
	if instances.Backup != nil {
		schedules = append(schedules, scheduledJob{cfg.Backup.Schedule, instances.Backup})
	}

	for _, s := range schedules {
		if err := container.Scheduler.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(schedules)).Msg("Jobs registered")
	return instances, nil
}
