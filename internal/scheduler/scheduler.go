package scheduler

import (
	"fmt"
	"time"

	"carehub-backend/internal/jobs"
	"carehub-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler with every maintenance job registered.
// An unparsable schedule is an error; nothing is started.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// UTC with seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}
	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	entries := []struct {
		name string
		spec string
		run  func() bool
	}{
		{"ResumeBlacklistCascades", cfg.ResumeBlacklistCascades, s.jobs.ResumeBlacklistCascades},
		{"ExpirePaymentIntents", cfg.ExpirePaymentIntents, s.jobs.ExpirePaymentIntents},
		{"ReconcileBalances", cfg.ReconcileBalances, s.jobs.ReconcileBalances},
		{"WarmAnalytics", cfg.WarmAnalytics, s.jobs.WarmAnalytics},
	}
	for _, e := range entries {
		run := e.run
		if _, err := s.cron.AddFunc(e.spec, func() { run() }); err != nil {
			return fmt.Errorf("failed to register %s job with schedule %q: %w", e.name, e.spec, err)
		}
		logger.Debug("Registered cron job", "job", e.name, "schedule", e.spec)
	}

	logger.Info("All cron jobs registered successfully", "count", len(entries))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries reports the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
