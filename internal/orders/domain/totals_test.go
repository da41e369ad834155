package domain_test

import (
	"math"
	"testing"

	"github.com/dejobratic/storefront/internal/orders/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	t.Run("sums lines and applies adjustments", func(t *testing.T) {
		items := []domain.OrderItem{
			{ProductID: "p-1", ProductName: "Mug", Quantity: 3, UnitPriceCents: 1250},
			{ProductID: "p-2", ProductName: "Tea", Quantity: 1, UnitPriceCents: 899},
		}

		totals, err := domain.ComputeTotals(items, 500, 320, 1000)

		require.NoError(t, err)
		assert.Equal(t, int64(3750), items[0].TotalPriceCents)
		assert.Equal(t, int64(899), items[1].TotalPriceCents)
		assert.Equal(t, int64(4649), totals.SubtotalCents)
		assert.Equal(t, int64(4649+500+320-1000), totals.TotalCents)
	})

	t.Run("free items are allowed", func(t *testing.T) {
		items := []domain.OrderItem{{ProductID: "p-1", ProductName: "Sticker", Quantity: 1}}
		totals, err := domain.ComputeTotals(items, 0, 0, 0)
		require.NoError(t, err)
		assert.Zero(t, totals.TotalCents)
	})

	t.Run("rejects negative adjustments", func(t *testing.T) {
		items := []domain.OrderItem{{ProductID: "p-1", ProductName: "Mug", Quantity: 1, UnitPriceCents: 100}}

		_, err := domain.ComputeTotals(items, -1, 0, 0)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = domain.ComputeTotals(items, 0, -1, 0)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = domain.ComputeTotals(items, 0, 0, -1)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects discount larger than the order", func(t *testing.T) {
		items := []domain.OrderItem{{ProductID: "p-1", ProductName: "Mug", Quantity: 1, UnitPriceCents: 100}}
		_, err := domain.ComputeTotals(items, 0, 0, 101)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects amounts that overflow", func(t *testing.T) {
		tests := []struct {
			name     string
			items    []domain.OrderItem
			shipping int64
			tax      int64
			field    string
		}{
			{
				name:  "line total",
				items: []domain.OrderItem{{ProductID: "p-1", ProductName: "Mug", Quantity: 4, UnitPriceCents: 1 << 62}},
				field: "items[0].unit_price_cents",
			},
			{
				name: "subtotal",
				items: []domain.OrderItem{
					{ProductID: "p-1", ProductName: "Mug", Quantity: 1, UnitPriceCents: math.MaxInt64 - 10},
					{ProductID: "p-2", ProductName: "Tea", Quantity: 1, UnitPriceCents: 11},
				},
				field: "items",
			},
			{
				name:     "shipping",
				items:    []domain.OrderItem{{ProductID: "p-1", ProductName: "Mug", Quantity: 1, UnitPriceCents: math.MaxInt64 - 10}},
				shipping: 11,
				field:    "shipping_amount_cents",
			},
			{
				name:  "tax",
				items: []domain.OrderItem{{ProductID: "p-1", ProductName: "Mug", Quantity: 1, UnitPriceCents: math.MaxInt64 - 10}},
				tax:   11,
				field: "tax_amount_cents",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := domain.ComputeTotals(tt.items, tt.shipping, tt.tax, 0)

				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
			})
		}
	})

	t.Run("accepts the largest representable line", func(t *testing.T) {
		items := []domain.OrderItem{{ProductID: "p-1", ProductName: "Mug", Quantity: 1, UnitPriceCents: math.MaxInt64}}
		totals, err := domain.ComputeTotals(items, 0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), totals.TotalCents)
	})

	t.Run("rejects invalid item", func(t *testing.T) {
		items := []domain.OrderItem{{ProductID: "p-1", ProductName: "Mug", Quantity: 0, UnitPriceCents: 100}}
		_, err := domain.ComputeTotals(items, 0, 0, 0)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", domain.FormatCents(0))
	assert.Equal(t, "19.99", domain.FormatCents(1999))
	assert.Equal(t, "1.05", domain.FormatCents(105))
	assert.Equal(t, "-2.50", domain.FormatCents(-250))
}

func TestHistoryNotes(t *testing.T) {
	assert.Equal(t, "Order status updated to shipped", domain.StatusUpdatedNote(domain.StatusShipped))
	assert.Equal(t, "Refund processed: $12.50. Reason: damaged", domain.RefundNote(1250, "damaged"))
	assert.Equal(t, "Refund processed: $1.00. Reason: N/A", domain.RefundNote(100, ""))
}

func TestOrderTotals(t *testing.T) {
	assert.Equal(t, domain.Totals{
		SubtotalCents: 9000,
		ShippingCents: 500,
		TaxCents:      700,
		DiscountCents: 200,
		TotalCents:    10000,
	}, testOrder().Totals())
}

func TestRenderInvoice(t *testing.T) {
	order := testOrder()
	order.RefundedAmountCents = 0

	body, err := domain.RenderInvoice(order)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, "Order ID: order-1")
	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "Keyboard x 2 - $90.00")
	assert.Contains(t, text, "Subtotal: $90.00")
	assert.Contains(t, text, "Shipping: $5.00")
	assert.Contains(t, text, "Tax: $7.00")
	assert.Contains(t, text, "Discount: -$2.00")
	assert.Contains(t, text, "Total: $100.00 USD")
	assert.NotContains(t, text, "Refunded:")
}
