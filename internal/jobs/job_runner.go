package jobs

import (
	"context"
	"time"

	"carehub-backend/internal/config"
	"carehub-backend/internal/domain"
	"carehub-backend/internal/logger"
)

// defaultJobTimeout bounds a single scheduled run.
const defaultJobTimeout = 5 * time.Minute

type CascadeResumer interface {
	ResumeCascades(ctx context.Context) (int, error)
}

type IntentExpirer interface {
	ExpirePaymentIntents(ctx context.Context) (int, error)
}

// LedgerJobs is the analytics surface the maintenance jobs drive.
type LedgerJobs interface {
	ReconcileBalances(ctx context.Context) (int, error)
	Recompute(ctx context.Context) (*domain.Analytics, error)
}

// Services holds the service dependencies needed by jobs
type Services struct {
	Moderation CascadeResumer
	Payments   IntentExpirer
	Analytics  LedgerJobs
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	timeout  time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		timeout:  defaultJobTimeout,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and a deadline.
// It reports whether the job finished without error.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) (int, error)) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			ok = false
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	n, err := jobFunc(ctx)
	if err != nil {
		logger.Error("Job failed", "job", jobName, "processed", n, "error", err)
		return false
	}
	logger.Info("Job completed", "job", jobName, "processed", n, "duration", time.Since(start))
	return true
}

// RunAll runs every maintenance job once, in dependency order: cascades
// first so reconciliation sees final flags, analytics last.
func (jr *JobRunner) RunAll() bool {
	ok := jr.ResumeBlacklistCascades()
	ok = jr.ExpirePaymentIntents() && ok
	ok = jr.ReconcileBalances() && ok
	ok = jr.WarmAnalytics() && ok
	return ok
}
