package domain

import (
	"fmt"
	"math"
)

// Totals is the monetary breakdown of an order, in cents.
type Totals struct {
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	DiscountCents int64
	TotalCents    int64
}

// ComputeTotals prices items and applies shipping, tax and discount.
// Each item's TotalPriceCents is filled in place.
func ComputeTotals(items []OrderItem, shippingCents, taxCents, discountCents int64) (Totals, error) {
	if shippingCents < 0 {
		return Totals{}, NewValidationError("shipping_amount_cents", "must not be negative")
	}
	if taxCents < 0 {
		return Totals{}, NewValidationError("tax_amount_cents", "must not be negative")
	}
	if discountCents < 0 {
		return Totals{}, NewValidationError("discount_amount_cents", "must not be negative")
	}

	var subtotal int64
	for i := range items {
		if err := items[i].Validate(i); err != nil {
			return Totals{}, err
		}
		qty := int64(items[i].Quantity)
		if items[i].UnitPriceCents > math.MaxInt64/qty {
			return Totals{}, NewValidationError(fmt.Sprintf("items[%d].unit_price_cents", i), "line total is too large")
		}
		items[i].TotalPriceCents = items[i].UnitPriceCents * qty

		var ok bool
		if subtotal, ok = addCents(subtotal, items[i].TotalPriceCents); !ok {
			return Totals{}, NewValidationError("items", "subtotal is too large")
		}
	}

	gross, ok := addCents(subtotal, shippingCents)
	if !ok {
		return Totals{}, NewValidationError("shipping_amount_cents", "order total is too large")
	}
	if gross, ok = addCents(gross, taxCents); !ok {
		return Totals{}, NewValidationError("tax_amount_cents", "order total is too large")
	}

	total := gross - discountCents
	if total < 0 {
		return Totals{}, NewValidationError("discount_amount_cents", "discount exceeds order amount")
	}

	return Totals{
		SubtotalCents: subtotal,
		ShippingCents: shippingCents,
		TaxCents:      taxCents,
		DiscountCents: discountCents,
		TotalCents:    total,
	}, nil
}

// addCents adds two non-negative amounts and reports false on overflow.
func addCents(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// FormatCents renders an amount in cents as a decimal string, e.g. 1999 -> "19.99".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
