package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/orders/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress() domain.Address {
	return domain.Address{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Address:   "12 Analytical St",
		City:      "London",
		State:     "LDN",
		ZipCode:   "N1 9GU",
		Country:   "UK",
	}
}

func testOrder() domain.Order {
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:            "order-1",
		UserID:        "user-1",
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentPending,
		Currency:      "USD",
		Items: []domain.OrderItem{
			{ProductID: "p-1", ProductName: "Keyboard", Quantity: 2, UnitPriceCents: 4500, TotalPriceCents: 9000},
		},
		SubtotalCents:       9000,
		ShippingAmountCents: 500,
		TaxAmountCents:      700,
		DiscountAmountCents: 200,
		TotalAmountCents:    10000,
		ShippingAddress:     testAddress(),
		BillingAddress:      testAddress(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *domain.Order)
		wantErr string
	}{
		{name: "valid order", mutate: func(o *domain.Order) {}},
		{name: "missing user", mutate: func(o *domain.Order) { o.UserID = "  " }, wantErr: "user_id"},
		{name: "no items", mutate: func(o *domain.Order) { o.Items = nil }, wantErr: "items"},
		{name: "zero quantity", mutate: func(o *domain.Order) { o.Items[0].Quantity = 0 }, wantErr: "items[0].quantity"},
		{name: "missing product name", mutate: func(o *domain.Order) { o.Items[0].ProductName = "" }, wantErr: "items[0].product_name"},
		{name: "invalid billing email", mutate: func(o *domain.Order) { o.BillingAddress.Email = "nope" }, wantErr: "billing_address.email"},
		{name: "missing shipping city", mutate: func(o *domain.Order) { o.ShippingAddress.City = "" }, wantErr: "shipping_address.city"},
		{name: "bad currency", mutate: func(o *domain.Order) { o.Currency = "DOLLARS" }, wantErr: "currency"},
		{name: "unknown status", mutate: func(o *domain.Order) { o.Status = "lost" }, wantErr: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testOrder()
			tt.mutate(&order)

			err := order.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantErr), "got %q", err.Error())
		})
	}
}

func TestOrderTransitionTo(t *testing.T) {
	at := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)

	t.Run("walks the happy path and stamps delivery", func(t *testing.T) {
		order := testOrder()
		for _, next := range []domain.OrderStatus{
			domain.StatusConfirmed, domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered,
		} {
			require.NoError(t, order.TransitionTo(next, at))
		}

		assert.Equal(t, domain.StatusDelivered, order.Status)
		require.NotNil(t, order.DeliveredAt)
		assert.Equal(t, at, *order.DeliveredAt)
		assert.Equal(t, at, order.UpdatedAt)
	})

	t.Run("rejects skipping a step", func(t *testing.T) {
		order := testOrder()
		err := order.TransitionTo(domain.StatusShipped, at)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.StatusPending, order.Status)
	})

	t.Run("delivered to refunded requires payment", func(t *testing.T) {
		order := testOrder()
		order.Status = domain.StatusDelivered

		err := order.TransitionTo(domain.StatusRefunded, at)
		assert.ErrorIs(t, err, domain.ErrRefundNotAllowed)

		order.PaymentStatus = domain.PaymentPaid
		require.NoError(t, order.TransitionTo(domain.StatusRefunded, at))
		assert.Equal(t, domain.PaymentRefunded, order.PaymentStatus)
		assert.Equal(t, order.TotalAmountCents, order.RefundedAmountCents)
	})
}

func TestOrderCancel(t *testing.T) {
	at := time.Now().UTC()

	cancellable := []domain.OrderStatus{domain.StatusPending, domain.StatusConfirmed, domain.StatusProcessing}
	for _, status := range cancellable {
		t.Run("cancels "+string(status), func(t *testing.T) {
			order := testOrder()
			order.Status = status
			require.NoError(t, order.Cancel(at))
			assert.Equal(t, domain.StatusCancelled, order.Status)
		})
	}

	blocked := []domain.OrderStatus{domain.StatusShipped, domain.StatusDelivered, domain.StatusCancelled, domain.StatusRefunded}
	for _, status := range blocked {
		t.Run("refuses "+string(status), func(t *testing.T) {
			order := testOrder()
			order.Status = status
			err := order.Cancel(at)
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			assert.Equal(t, status, order.Status)
		})
	}
}

func TestOrderRefund(t *testing.T) {
	at := time.Now().UTC()

	t.Run("full refund when amount is zero", func(t *testing.T) {
		order := testOrder()
		order.Status = domain.StatusDelivered
		order.PaymentStatus = domain.PaymentPaid

		amount, err := order.Refund(0, at)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), amount)
		assert.Equal(t, domain.StatusRefunded, order.Status)
		assert.Equal(t, domain.PaymentRefunded, order.PaymentStatus)
		assert.Equal(t, int64(10000), order.RefundedAmountCents)
	})

	t.Run("partial refund", func(t *testing.T) {
		order := testOrder()
		order.PaymentStatus = domain.PaymentPaid

		amount, err := order.Refund(2500, at)
		require.NoError(t, err)
		assert.Equal(t, int64(2500), amount)
		assert.Equal(t, int64(2500), order.RefundedAmountCents)
	})

	t.Run("cancelled but paid order can be refunded", func(t *testing.T) {
		order := testOrder()
		order.Status = domain.StatusCancelled
		order.PaymentStatus = domain.PaymentPaid

		_, err := order.Refund(0, at)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRefunded, order.Status)
	})

	t.Run("unpaid order is rejected", func(t *testing.T) {
		order := testOrder()
		_, err := order.Refund(0, at)
		assert.ErrorIs(t, err, domain.ErrRefundNotAllowed)
		assert.Contains(t, err.Error(), "order must be paid to process refund")
	})

	t.Run("already refunded order is rejected", func(t *testing.T) {
		order := testOrder()
		order.Status = domain.StatusRefunded
		order.PaymentStatus = domain.PaymentPaid
		_, err := order.Refund(0, at)
		assert.ErrorIs(t, err, domain.ErrRefundNotAllowed)
		assert.Contains(t, err.Error(), "already refunded")
	})

	t.Run("amount above total is rejected", func(t *testing.T) {
		order := testOrder()
		order.PaymentStatus = domain.PaymentPaid
		_, err := order.Refund(10001, at)
		assert.ErrorIs(t, err, domain.ErrRefundNotAllowed)
		assert.Equal(t, domain.StatusPending, order.Status)
	})

	t.Run("negative amount is a validation error", func(t *testing.T) {
		order := testOrder()
		order.PaymentStatus = domain.PaymentPaid
		_, err := order.Refund(-1, at)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestOrderApplyUpdate(t *testing.T) {
	at := time.Now().UTC()

	t.Run("applies tracking and payment fields", func(t *testing.T) {
		order := testOrder()
		paid := domain.PaymentPaid
		tracking := "1Z999"
		eta := at.Add(72 * time.Hour)

		err := order.ApplyUpdate(domain.OrderPatch{
			PaymentStatus:     &paid,
			TrackingNumber:    &tracking,
			EstimatedDelivery: &eta,
		}, at)

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPaid, order.PaymentStatus)
		assert.Equal(t, "1Z999", order.TrackingNumber)
		require.NotNil(t, order.EstimatedDelivery)
		assert.Equal(t, eta, *order.EstimatedDelivery)
	})

	t.Run("rejects closed orders", func(t *testing.T) {
		order := testOrder()
		order.Status = domain.StatusCancelled
		notes := "late change"

		err := order.ApplyUpdate(domain.OrderPatch{Notes: &notes}, at)
		assert.ErrorIs(t, err, domain.ErrOrderClosed)
	})

	t.Run("rejects refunded payment status", func(t *testing.T) {
		order := testOrder()
		refunded := domain.PaymentRefunded

		err := order.ApplyUpdate(domain.OrderPatch{PaymentStatus: &refunded}, at)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	})

	t.Run("rejects invalid address without partial apply", func(t *testing.T) {
		order := testOrder()
		addr := testAddress()
		addr.ZipCode = ""
		method := "card"

		err := order.ApplyUpdate(domain.OrderPatch{ShippingAddress: &addr, PaymentMethod: &method}, at)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, order.PaymentMethod)
	})
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "USD", domain.NormalizeCurrency(""))
	assert.Equal(t, "EUR", domain.NormalizeCurrency(" eur "))
}

func TestNewEvent(t *testing.T) {
	order := testOrder()
	order.Status = domain.StatusConfirmed

	event := domain.NewEvent(domain.EventOrderStatusChanged, order)

	assert.Equal(t, domain.EventOrderStatusChanged, event.Type)
	assert.Equal(t, "order-1", event.OrderID)
	assert.Equal(t, "ada@example.com", event.Recipient)
	assert.Equal(t, domain.StatusConfirmed, event.Status)
	assert.Equal(t, int64(10000), event.TotalAmountCents)
	assert.Equal(t, order.UpdatedAt, event.OccurredAt)
}
