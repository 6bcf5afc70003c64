package jobs

import (
	"context"
	"errors"
	"testing"

	"carehub-backend/internal/config"
	"carehub-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockModeration struct{ mock.Mock }

func (m *MockModeration) ResumeCascades(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPayments struct{ mock.Mock }

func (m *MockPayments) ExpirePaymentIntents(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockAnalytics struct{ mock.Mock }

func (m *MockAnalytics) ReconcileBalances(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalytics) Recompute(ctx context.Context) (*domain.Analytics, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).(*domain.Analytics)
	return a, args.Error(1)
}

func newRunner() (*JobRunner, *MockModeration, *MockPayments, *MockAnalytics) {
	mod, pay, an := &MockModeration{}, &MockPayments{}, &MockAnalytics{}
	jr := NewJobRunner(&Services{Moderation: mod, Payments: pay, Analytics: an}, &config.Config{})
	return jr, mod, pay, an
}

func TestRunAll(t *testing.T) {
	jr, mod, pay, an := newRunner()
	mod.On("ResumeCascades", mock.Anything).Return(1, nil).Once()
	pay.On("ExpirePaymentIntents", mock.Anything).Return(3, nil).Once()
	an.On("ReconcileBalances", mock.Anything).Return(0, nil).Once()
	an.On("Recompute", mock.Anything).Return(&domain.Analytics{TotalBookings: 7}, nil).Once()

	assert.True(t, jr.RunAll())
	mod.AssertExpectations(t)
	pay.AssertExpectations(t)
	an.AssertExpectations(t)
}

func TestRunAll_FailureDoesNotStopLaterJobs(t *testing.T) {
	jr, mod, pay, an := newRunner()
	mod.On("ResumeCascades", mock.Anything).Return(0, errors.New("db down")).Once()
	pay.On("ExpirePaymentIntents", mock.Anything).Return(0, nil).Once()
	an.On("ReconcileBalances", mock.Anything).Return(2, nil).Once()
	an.On("Recompute", mock.Anything).Return(nil, errors.New("timeout")).Once()

	assert.False(t, jr.RunAll())
	pay.AssertExpectations(t)
	an.AssertExpectations(t)
}

func TestRunWithRecovery_Panic(t *testing.T) {
	jr, mod, _, _ := newRunner()
	mod.On("ResumeCascades", mock.Anything).Run(func(mock.Arguments) { panic("boom") }).Return(0, nil)

	assert.NotPanics(t, func() {
		assert.False(t, jr.ResumeBlacklistCascades())
	})
}

func TestRunWithRecovery_Deadline(t *testing.T) {
	jr, _, pay, _ := newRunner()
	pay.On("ExpirePaymentIntents", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(0, nil).Once()

	assert.True(t, jr.ExpirePaymentIntents())
	pay.AssertExpectations(t)
}
