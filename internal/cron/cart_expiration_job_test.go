package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bannersonthefly/banners-backend/pkg/logger"
)

func TestCartExpirationJobExpiresAndDeletes(t *testing.T) {
	repo := &fakeExpirerRepo{expiredRows: 3, deletedRows: 2}
	job := newExpirationJob(t, repo)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.lastExpireNow.Equal(now) {
		t.Fatalf("unexpected expire time %s", repo.lastExpireNow)
	}
	if repo.lastExpireAfter != testRecoveryConfig.ExpireAfter {
		t.Fatalf("unexpected expire window %s", repo.lastExpireAfter)
	}
	wantCutoff := now.Add(-testRecoveryConfig.DeleteAfter)
	if !repo.lastDeleteCutoff.Equal(wantCutoff) {
		t.Fatalf("expected delete cutoff %s, got %s", wantCutoff, repo.lastDeleteCutoff)
	}
}

func TestCartExpirationJobAggregatesErrors(t *testing.T) {
	repo := &fakeExpirerRepo{
		expireErr: errors.New("expire failed"),
		deleteErr: errors.New("delete failed"),
	}
	job := newExpirationJob(t, repo)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	// Both sweeps still ran despite the first failing.
	if repo.expireCalls != 1 || repo.deleteCalls != 1 {
		t.Fatalf("expected both sweeps attempted, got %d/%d", repo.expireCalls, repo.deleteCalls)
	}
}

func newExpirationJob(t *testing.T, repo *fakeExpirerRepo) *cartExpirationJob {
	t.Helper()
	jobIface, err := NewCartExpirationJob(CartExpirationJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Repo:     repo,
		Recovery: testRecoveryConfig,
	})
	if err != nil {
		t.Fatalf("NewCartExpirationJob: %v", err)
	}
	job, ok := jobIface.(*cartExpirationJob)
	if !ok {
		t.Fatalf("expected cartExpirationJob, got %T", jobIface)
	}
	return job
}

type fakeExpirerRepo struct {
	expiredRows      int64
	deletedRows      int64
	expireErr        error
	deleteErr        error
	expireCalls      int
	deleteCalls      int
	lastExpireNow    time.Time
	lastExpireAfter  time.Duration
	lastDeleteCutoff time.Time
}

func (f *fakeExpirerRepo) ExpireStale(ctx context.Context, now time.Time, expireAfter time.Duration) (int64, error) {
	f.expireCalls++
	f.lastExpireNow = now
	f.lastExpireAfter = expireAfter
	if f.expireErr != nil {
		return 0, f.expireErr
	}
	return f.expiredRows, nil
}

func (f *fakeExpirerRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deleteCalls++
	f.lastDeleteCutoff = cutoff
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return f.deletedRows, nil
}
