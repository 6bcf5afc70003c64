package jobs

import (
	"context"

	"carehub-backend/internal/logger"
)

// ResumeBlacklistCascades finishes organization blacklists whose fan-out to
// caregivers was interrupted.
func (jr *JobRunner) ResumeBlacklistCascades() bool {
	return jr.runWithRecovery("ResumeBlacklistCascades", jr.services.Moderation.ResumeCascades)
}

// ExpirePaymentIntents retires gateway references nobody paid in time.
func (jr *JobRunner) ExpirePaymentIntents() bool {
	return jr.runWithRecovery("ExpirePaymentIntents", jr.services.Payments.ExpirePaymentIntents)
}

// ReconcileBalances rewrites caregiver counters that drifted from the ledger.
func (jr *JobRunner) ReconcileBalances() bool {
	return jr.runWithRecovery("ReconcileBalances", func(ctx context.Context) (int, error) {
		fixed, err := jr.services.Analytics.ReconcileBalances(ctx)
		if fixed > 0 {
			logger.Warn("Caregiver balances drifted from the ledger", "fixed", fixed)
		}
		return fixed, err
	})
}

// WarmAnalytics recomputes the platform snapshot so the next read is cached.
func (jr *JobRunner) WarmAnalytics() bool {
	return jr.runWithRecovery("WarmAnalytics", func(ctx context.Context) (int, error) {
		a, err := jr.services.Analytics.Recompute(ctx)
		if err != nil {
			return 0, err
		}
		return a.TotalBookings, nil
	})
}
