package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Purger removes expired idempotency records.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// IdempotencyPurgeJob periodically deletes expired idempotency keys from
// stores that do not expire them on their own.
type IdempotencyPurgeJob struct {
	store    Purger
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewIdempotencyPurgeJob(store Purger, schedule string, logger *slog.Logger) *IdempotencyPurgeJob {
	return &IdempotencyPurgeJob{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "idempotency_purge_job"),
	}
}

func (j *IdempotencyPurgeJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		_, _ = j.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule idempotency purge: %w", err)
	}

	j.cron.Start()
	return nil
}

// RunOnce performs a single purge and returns the number of removed keys.
func (j *IdempotencyPurgeJob) RunOnce(ctx context.Context) (int64, error) {
	removed, err := j.store.Purge(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "idempotency purge failed", "error", err)
		return 0, fmt.Errorf("purge idempotency keys: %w", err)
	}
	if removed > 0 {
		j.logger.InfoContext(ctx, "purged idempotency keys", "count", removed)
	}
	return removed, nil
}

func (j *IdempotencyPurgeJob) Stop() {
	<-j.cron.Stop().Done()
}
