package scheduler

import "github.com/rs/zerolog"

// AlertStore is the part of the risk engine the cleanup job needs.
type AlertStore interface {
	ClearAcknowledged() int
}

// AlertCleanupJob drops acknowledged risk alerts.
type AlertCleanupJob struct {
	alerts AlertStore
	log    zerolog.Logger
}

// NewAlertCleanupJob creates a new AlertCleanupJob
func NewAlertCleanupJob(alerts AlertStore, log zerolog.Logger) *AlertCleanupJob {
	return &AlertCleanupJob{
		alerts: alerts,
		log:    log.With().Str("job", "alert_cleanup").Logger(),
	}
}

// Name returns the job name
func (j *AlertCleanupJob) Name() string {
	return "alert_cleanup"
}

// Run executes the alert cleanup job
func (j *AlertCleanupJob) Run() error {
	if n := j.alerts.ClearAcknowledged(); n > 0 {
		j.log.Info().Int("cleared", n).Msg("Acknowledged alerts cleared")
	}
	return nil
}
