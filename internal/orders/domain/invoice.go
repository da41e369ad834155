package domain

import (
	"bytes"
	"fmt"
	"text/template"
)

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": FormatCents,
	"date":  func(d invoiceData) string { return d.CreatedAt.Format("Mon Jan 02 2006") },
}).Parse(`INVOICE

Order ID: {{.ID}}
Date: {{date .}}

Bill To:
{{.BillingAddress.FullName}}
{{.BillingAddress.Address}}
{{.BillingAddress.City}}, {{.BillingAddress.State}} {{.BillingAddress.ZipCode}}
{{.BillingAddress.Country}}

Items:
{{range .Items}}{{.ProductName}} x {{.Quantity}} - ${{money .TotalPriceCents}}
{{end}}
Subtotal: ${{money .Amounts.SubtotalCents}}
Shipping: ${{money .Amounts.ShippingCents}}
Tax: ${{money .Amounts.TaxCents}}
Discount: -${{money .Amounts.DiscountCents}}

Total: ${{money .Amounts.TotalCents}} {{.Currency}}
{{if gt .RefundedAmountCents 0}}Refunded: ${{money .RefundedAmountCents}}
{{end}}`))

type invoiceData struct {
	Order
	Amounts Totals
}

// RenderInvoice produces the plain-text invoice for an order.
func RenderInvoice(order Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, invoiceData{Order: order, Amounts: order.Totals()}); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
