package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableHandler decorates a command handler with a span, structured logs
// and metrics.
type ObservableHandler[C Command] struct {
	handler Handler[C]
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableHandler[C Command](handler Handler[C], logger *slog.Logger, metrics *metrics.Metrics) *ObservableHandler[C] {
	return &ObservableHandler[C]{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableHandler[C]) Handle(ctx context.Context, cmd C) (*domain.Order, error) {
	name := cmd.Name()
	ctx, span := telemetry.StartSpan(ctx, name+".Handle")
	defer span.End()

	start := time.Now()
	var (
		order   *domain.Order
		success bool
	)
	defer func() {
		cmd.record(ctx, o.metrics, order, success, time.Since(start).Seconds())
	}()

	o.logger.InfoContext(ctx, "handling command", append([]any{"command", name}, cmd.LogAttrs()...)...)

	order, err := o.handler.Handle(ctx, cmd)
	if err != nil && order == nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "command failed",
			"command", name,
			"error", err,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.user_id", order.UserID),
		attribute.Int64("order.total_amount_cents", order.TotalAmountCents),
		attribute.String("order.status", string(order.Status)),
	)

	// The order was persisted; only event publication failed.
	success = true
	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.WarnContext(ctx, "command succeeded but event publication failed",
			"command", name,
			"order_id", order.ID,
			"error", err,
		)
		return order, err
	}

	o.logger.InfoContext(ctx, "command handled successfully",
		"command", name,
		"order_id", order.ID,
		"status", order.Status,
	)

	telemetry.SetSpanSuccess(span)
	return order, nil
}
