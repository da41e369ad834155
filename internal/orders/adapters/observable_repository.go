package adapters

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
)

// ObservableRepository wraps an OrderRepository with spans and query metrics.
type ObservableRepository struct {
	repo    ports.OrderRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.OrderRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableRepository) Create(ctx context.Context, order domain.Order, entry domain.HistoryEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.Create")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
		attribute.String("operation", "create"),
	)

	start := time.Now()
	err := r.repo.Create(ctx, order, entry)
	r.finish(ctx, span, "create_order", start, err)
	return err
}

func (r *ObservableRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.GetByID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", id),
		attribute.String("operation", "get_by_id"),
	)

	start := time.Now()
	order, err := r.repo.GetByID(ctx, id)
	r.finish(ctx, span, "get_order_by_id", start, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *ObservableRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.List")
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("operation", "list"),
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	if filter.UserID != "" {
		attrs = append(attrs, attribute.String("filter.user_id", filter.UserID))
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.PaymentStatus != nil {
		attrs = append(attrs, attribute.String("filter.payment_status", string(*filter.PaymentStatus)))
	}
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	orders, total, err := r.repo.List(ctx, filter)
	if err == nil {
		telemetry.AddSpanAttributes(span,
			attribute.Int("result.count", len(orders)),
			attribute.Int("result.total", total),
		)
	}
	r.finish(ctx, span, "list_orders", start, err)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *ObservableRepository) Update(ctx context.Context, id string, mutate ports.UpdateFunc) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.Update")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", id),
		attribute.String("operation", "update"),
	)

	start := time.Now()
	order, err := r.repo.Update(ctx, id, mutate)
	if err == nil {
		telemetry.AddSpanAttributes(span, attribute.String("order.status", string(order.Status)))
	}
	r.finish(ctx, span, "update_order", start, err)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *ObservableRepository) History(ctx context.Context, orderID string) ([]domain.HistoryEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.History")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("operation", "history"),
	)

	start := time.Now()
	entries, err := r.repo.History(ctx, orderID)
	r.finish(ctx, span, "order_history", start, err)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ObservableRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderRepository.ListStalePending")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("operation", "list_stale_pending"),
		attribute.String("cutoff", before.Format(time.RFC3339)),
		attribute.Int("limit", limit),
	)

	start := time.Now()
	orders, err := r.repo.ListStalePending(ctx, before, limit)
	r.finish(ctx, span, "list_stale_pending", start, err)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// finish records the query duration and closes out the span status.
// Domain errors raised by an update callback still count as a completed query.
func (r *ObservableRepository) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	r.metrics.RecordQuery(ctx, operation, time.Since(start).Seconds(), err == nil)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return
	}
	telemetry.SetSpanSuccess(span)
}
