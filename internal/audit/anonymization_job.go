package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/campuscart/backend/internal/jobs"
)

// IPAnonymizer is implemented by repositories that can anonymize stored IP
// addresses in place.
type IPAnonymizer interface {
	AnonymizeIPsBefore(cutoff time.Time, dryRun bool) (int, error)
}

// AnonymizationJobConfig configures the IP anonymization job.
type AnonymizationJobConfig struct {
	Anonymizer IPAnonymizer
	Logger     *slog.Logger
	Metrics    *jobs.Metrics
	// Interval between runs when started as a background job.
	Interval time.Duration
	// DryRun reports what would be anonymized without modifying logs.
	DryRun bool
}

// AnonymizationJob periodically anonymizes IP addresses on audit logs older
// than the retention cutoff.
type AnonymizationJob struct {
	config AnonymizationJobConfig
}

// NewAnonymizationJob creates a new IP anonymization job.
func NewAnonymizationJob(config AnonymizationJobConfig) *AnonymizationJob {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	return &AnonymizationJob{config: config}
}

// Run executes a single anonymization pass and returns the number of logs
// anonymized.
func (j *AnonymizationJob) Run(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := IPAnonymizationCutoff()
	count, err := j.config.Anonymizer.AnonymizeIPsBefore(cutoff, j.config.DryRun)
	if j.config.Metrics != nil {
		j.config.Metrics.ObserveJobDuration(jobs.JobTypeIPAnonymization, time.Since(start).Seconds())
		status := jobs.StatusSuccess
		if err != nil {
			status = jobs.StatusFailure
			j.config.Metrics.IncJobErrors(jobs.JobTypeIPAnonymization, "repository_error")
		}
		j.config.Metrics.IncJobsTotal(jobs.JobTypeIPAnonymization, status)
	}
	if err != nil {
		j.config.Logger.Error("IP anonymization pass failed", "error", err)
		return 0, err
	}
	j.config.Logger.Info("IP anonymization pass complete",
		"cutoff", cutoff,
		"anonymized", count,
		"dry_run", j.config.DryRun,
	)
	return count, nil
}

// Start runs the job on its configured interval until the context is
// cancelled. An initial pass runs immediately.
func (j *AnonymizationJob) Start(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		j.config.Logger.Error("initial IP anonymization run failed", "error", err)
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.config.Logger.Error("IP anonymization run failed", "error", err)
			}
		}
	}
}
