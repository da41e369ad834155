package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCurrency is applied when an order is created without one.
const DefaultCurrency = "USD"

// Address is a shipping or billing destination.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
}

// Validate ensures all mandatory address fields are present.
func (a Address) Validate(field string) error {
	required := []struct {
		name  string
		value string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"email", a.Email},
		{"address", a.Address},
		{"city", a.City},
		{"state", a.State},
		{"zip_code", a.ZipCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(field+"."+r.name, "is required")
		}
	}
	if !strings.Contains(a.Email, "@") {
		return NewValidationError(field+".email", "must be valid")
	}
	return nil
}

// FullName joins first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// OrderItem is a single product line within an order.
type OrderItem struct {
	ID              string         `json:"id"`
	ProductID       string         `json:"product_id"`
	ProductName     string         `json:"product_name"`
	ProductSKU      string         `json:"product_sku,omitempty"`
	ProductImage    string         `json:"product_image,omitempty"`
	Quantity        int            `json:"quantity"`
	UnitPriceCents  int64          `json:"unit_price_cents"`
	TotalPriceCents int64          `json:"total_price_cents"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

// Validate checks the line's product reference, quantity and price.
func (i OrderItem) Validate(index int) error {
	field := fmt.Sprintf("items[%d]", index)
	if strings.TrimSpace(i.ProductID) == "" {
		return NewValidationError(field+".product_id", "is required")
	}
	if strings.TrimSpace(i.ProductName) == "" {
		return NewValidationError(field+".product_name", "is required")
	}
	if i.Quantity < 1 {
		return NewValidationError(field+".quantity", "must be at least 1")
	}
	if i.UnitPriceCents < 0 {
		return NewValidationError(field+".unit_price_cents", "must not be negative")
	}
	return nil
}

// Order represents a purchase managed by the order service.
type Order struct {
	ID                  string        `json:"id"`
	UserID              string        `json:"user_id"`
	Status              OrderStatus   `json:"status"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	SubtotalCents       int64         `json:"subtotal_cents"`
	ShippingAmountCents int64         `json:"shipping_amount_cents"`
	TaxAmountCents      int64         `json:"tax_amount_cents"`
	DiscountAmountCents int64         `json:"discount_amount_cents"`
	TotalAmountCents    int64         `json:"total_amount_cents"`
	RefundedAmountCents int64         `json:"refunded_amount_cents"`
	Currency            string        `json:"currency"`
	ShippingAddress     Address       `json:"shipping_address"`
	BillingAddress      Address       `json:"billing_address"`
	PaymentMethod       string        `json:"payment_method,omitempty"`
	PaymentReference    string        `json:"payment_reference,omitempty"`
	TrackingNumber      string        `json:"tracking_number,omitempty"`
	TrackingURL         string        `json:"tracking_url,omitempty"`
	EstimatedDelivery   *time.Time    `json:"estimated_delivery,omitempty"`
	DeliveredAt         *time.Time    `json:"delivered_at,omitempty"`
	Notes               string        `json:"notes,omitempty"`
	Items               []OrderItem   `json:"items"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return NewValidationError("user_id", "is required")
	}
	if len(o.Items) == 0 {
		return NewValidationError("items", "at least one item is required")
	}
	for i, item := range o.Items {
		if err := item.Validate(i); err != nil {
			return err
		}
	}
	if err := o.ShippingAddress.Validate("shipping_address"); err != nil {
		return err
	}
	if err := o.BillingAddress.Validate("billing_address"); err != nil {
		return err
	}
	if len(o.Currency) != 3 {
		return NewValidationError("currency", "must be a 3-letter code")
	}
	if !o.Status.Valid() {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", o.Status))
	}
	if !o.PaymentStatus.Valid() {
		return NewValidationError("payment_status", fmt.Sprintf("unknown payment status %q", o.PaymentStatus))
	}
	if o.TotalAmountCents < 0 {
		return NewValidationError("total_amount_cents", "must not be negative")
	}
	return nil
}

// IsTerminal indicates whether the order is in a terminal state.
func (o Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// OwnedBy reports whether userID may access the order. An empty userID is
// an internal caller and always passes.
func (o Order) OwnedBy(userID string) bool {
	return userID == "" || o.UserID == userID
}

// Totals returns the monetary breakdown stored on the order.
func (o Order) Totals() Totals {
	return Totals{
		SubtotalCents: o.SubtotalCents,
		ShippingCents: o.ShippingAmountCents,
		TaxCents:      o.TaxAmountCents,
		DiscountCents: o.DiscountAmountCents,
		TotalCents:    o.TotalAmountCents,
	}
}

// TransitionTo moves the order to next if the lifecycle permits it.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if err := ValidateTransition(o.Status, next); err != nil {
		return err
	}
	if next == StatusRefunded {
		_, err := o.Refund(0, at)
		return err
	}
	o.Status = next
	o.UpdatedAt = at
	if next == StatusDelivered {
		delivered := at
		o.DeliveredAt = &delivered
	}
	return nil
}

// Cancel moves the order to cancelled. Shipped and later orders cannot be cancelled.
func (o *Order) Cancel(at time.Time) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return &TransitionError{From: o.Status, To: StatusCancelled}
	}
	o.Status = StatusCancelled
	o.UpdatedAt = at
	return nil
}

// Refund settles a refund of amountCents (0 meaning the full total) and returns
// the refunded amount.
func (o *Order) Refund(amountCents int64, at time.Time) (int64, error) {
	if o.PaymentStatus != PaymentPaid {
		return 0, refundError("order must be paid to process refund")
	}
	if o.Status == StatusRefunded {
		return 0, refundError("order already refunded")
	}
	if amountCents < 0 {
		return 0, NewValidationError("amount_cents", "must not be negative")
	}
	if amountCents == 0 {
		amountCents = o.TotalAmountCents
	}
	if amountCents > o.TotalAmountCents {
		return 0, refundError("refund amount cannot exceed order total")
	}

	o.Status = StatusRefunded
	o.PaymentStatus = PaymentRefunded
	o.RefundedAmountCents = amountCents
	o.UpdatedAt = at
	return amountCents, nil
}

// OrderPatch carries optional changes to an order's mutable fields.
type OrderPatch struct {
	PaymentStatus     *PaymentStatus
	ShippingAddress   *Address
	BillingAddress    *Address
	PaymentMethod     *string
	PaymentReference  *string
	TrackingNumber    *string
	TrackingURL       *string
	EstimatedDelivery *time.Time
	Notes             *string
}

// IsEmpty reports whether the patch changes nothing.
func (p OrderPatch) IsEmpty() bool {
	return p.PaymentStatus == nil && p.ShippingAddress == nil && p.BillingAddress == nil &&
		p.PaymentMethod == nil && p.PaymentReference == nil && p.TrackingNumber == nil &&
		p.TrackingURL == nil && p.EstimatedDelivery == nil && p.Notes == nil
}

// ApplyUpdate applies patch to the order. Closed orders are rejected.
func (o *Order) ApplyUpdate(patch OrderPatch, at time.Time) error {
	if o.IsTerminal() {
		return ErrOrderClosed
	}

	if patch.PaymentStatus != nil {
		if !patch.PaymentStatus.Valid() {
			return NewValidationError("payment_status", fmt.Sprintf("unknown payment status %q", *patch.PaymentStatus))
		}
		if *patch.PaymentStatus == PaymentRefunded {
			return NewValidationError("payment_status", "use the refund operation to refund an order")
		}
	}
	if patch.ShippingAddress != nil {
		if err := patch.ShippingAddress.Validate("shipping_address"); err != nil {
			return err
		}
	}
	if patch.BillingAddress != nil {
		if err := patch.BillingAddress.Validate("billing_address"); err != nil {
			return err
		}
	}

	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	if patch.ShippingAddress != nil {
		o.ShippingAddress = *patch.ShippingAddress
	}
	if patch.BillingAddress != nil {
		o.BillingAddress = *patch.BillingAddress
	}
	if patch.PaymentMethod != nil {
		o.PaymentMethod = *patch.PaymentMethod
	}
	if patch.PaymentReference != nil {
		o.PaymentReference = *patch.PaymentReference
	}
	if patch.TrackingNumber != nil {
		o.TrackingNumber = *patch.TrackingNumber
	}
	if patch.TrackingURL != nil {
		o.TrackingURL = *patch.TrackingURL
	}
	if patch.EstimatedDelivery != nil {
		eta := *patch.EstimatedDelivery
		o.EstimatedDelivery = &eta
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	o.UpdatedAt = at
	return nil
}

// NormalizeCurrency upper-cases code, defaulting to USD.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}
