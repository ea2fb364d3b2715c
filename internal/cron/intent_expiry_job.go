package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rafal-store/rafal-backend/pkg/logger"
)

type staleExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// IntentExpiryJob sweeps payment attempts whose intent window lapsed
// without a provider verdict and marks them expired.
type IntentExpiryJob struct {
	payments staleExpirer
	logg     *logger.Logger
	now      func() time.Time
}

// NewIntentExpiryJob builds the sweep job.
func NewIntentExpiryJob(payments staleExpirer, logg *logger.Logger) (*IntentExpiryJob, error) {
	if payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &IntentExpiryJob{payments: payments, logg: logg, now: time.Now}, nil
}

// Name implements Job.
func (j *IntentExpiryJob) Name() string {
	return "payment-intent-expiry"
}

// Run implements Job.
func (j *IntentExpiryJob) Run(ctx context.Context) error {
	expired, err := j.payments.ExpireStale(ctx, j.now().UTC())
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "marked stale payment attempts expired")
	}
	return err
}
