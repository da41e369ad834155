package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
)

const (
	// ExpiryReason is recorded in history for orders cancelled by the job.
	ExpiryReason = "Payment window expired"
	// DefaultExpiryBatchSize bounds the orders cancelled per run.
	DefaultExpiryBatchSize = 100
)

// PendingOrderExpiryJob cancels orders that stayed pending longer than the
// payment window.
type PendingOrderExpiryJob struct {
	repo      ports.OrderRepository
	cancel    commands.Handler[commands.CancelOrderCommand]
	metrics   *metrics.Metrics
	ttl       time.Duration
	batchSize int
	schedule  string
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time
}

// NewPendingOrderExpiryJob creates the job. schedule is a standard five-field
// cron expression or a descriptor such as "@every 1m".
func NewPendingOrderExpiryJob(
	repo ports.OrderRepository,
	cancel commands.Handler[commands.CancelOrderCommand],
	metrics *metrics.Metrics,
	ttl time.Duration,
	schedule string,
	logger *slog.Logger,
) *PendingOrderExpiryJob {
	return &PendingOrderExpiryJob{
		repo:      repo,
		cancel:    cancel,
		metrics:   metrics,
		ttl:       ttl,
		batchSize: DefaultExpiryBatchSize,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger.With("component", "pending_order_expiry_job"),
		now:       time.Now,
	}
}

// Start schedules the job. It is a no-op when the ttl is not positive.
func (j *PendingOrderExpiryJob) Start() error {
	if j.ttl <= 0 {
		j.logger.Info("pending order expiry disabled")
		return nil
	}

	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx := context.Background()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.ErrorContext(ctx, "pending order expiry failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule pending order expiry: %w", err)
	}

	j.cron.Start()
	j.logger.Info("pending order expiry started", "schedule", j.schedule, "ttl", j.ttl)
	return nil
}

// Stop stops scheduling and waits for a running pass to finish.
func (j *PendingOrderExpiryJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("pending order expiry stopped")
}

// RunOnce cancels one batch of stale pending orders and returns how many were
// cancelled. Orders that moved on concurrently are skipped.
func (j *PendingOrderExpiryJob) RunOnce(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.ttl)
	stale, err := j.repo.ListStalePending(ctx, cutoff, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale pending orders: %w", err)
	}

	expired := 0
	var errs []error
	for _, order := range stale {
		cancelled, err := j.cancel.Handle(ctx, commands.CancelOrderCommand{
			OrderID:   order.ID,
			Reason:    ExpiryReason,
			ChangedBy: commands.SystemActor,
		})
		switch {
		case err == nil:
			expired++
		case cancelled != nil:
			// committed, only the event failed
			expired++
			j.logger.WarnContext(ctx, "expired order without event", "order_id", order.ID, "error", err)
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, ports.ErrNotFound):
			j.logger.DebugContext(ctx, "order no longer pending", "order_id", order.ID)
		default:
			errs = append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
		}
	}

	j.metrics.RecordOrdersExpired(ctx, expired)
	if expired > 0 {
		j.logger.InfoContext(ctx, "expired pending orders", "count", expired, "cutoff", cutoff)
	}
	return expired, errors.Join(errs...)
}
