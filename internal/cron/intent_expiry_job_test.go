package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rafal-store/rafal-backend/pkg/logger"
)

func TestIntentExpiryJobPassesUTCNow(t *testing.T) {
	t.Parallel()

	expirer := &stubExpirer{expired: 3}
	job, err := NewIntentExpiryJob(expirer, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fixed := time.Date(2025, 8, 10, 12, 0, 0, 0, time.FixedZone("EET", 2*3600))
	job.now = func() time.Time { return fixed }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expirer.got.Equal(fixed) || expirer.got.Location() != time.UTC {
		t.Fatalf("expected the sweep cutoff in UTC, got %v", expirer.got)
	}
}

func TestIntentExpiryJobPropagatesError(t *testing.T) {
	t.Parallel()

	want := errors.New("db down")
	job, err := NewIntentExpiryJob(&stubExpirer{err: want}, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := job.Run(context.Background()); !errors.Is(got, want) {
		t.Fatalf("expected sweep error, got %v", got)
	}
}

type stubExpirer struct {
	expired int
	err     error
	got     time.Time
}

func (s *stubExpirer) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	s.got = now
	return s.expired, s.err
}
