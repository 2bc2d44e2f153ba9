package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeLine fills the derived amounts of a line. TaxPercentage must be
// resolved beforehand; a non-nil tax overrides the percentage calculation.
//
//	base     = quantity * unit_price
//	discount = base * discount_percentage / 100, or the explicit amount
//	subtotal = base - discount
//	tax      = subtotal * tax_percentage / 100 when taxable
//	total    = subtotal + tax
func ComputeLine(line *InvoiceLineItem, tax *decimal.Decimal) error {
	if !line.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if line.UnitPrice.IsNegative() {
		return ErrInvalidUnitPrice
	}
	if !validPercentage(line.DiscountPercentage) || !validPercentage(line.TaxPercentage) {
		return ErrInvalidPercentage
	}

	base := line.Quantity.Mul(line.UnitPrice).Round(2)
	if line.DiscountPercentage.IsPositive() {
		line.DiscountAmount = base.Mul(line.DiscountPercentage).Div(hundred).Round(2)
	}
	if line.DiscountAmount.IsNegative() || line.DiscountAmount.GreaterThan(base) {
		return ErrInvalidDiscount
	}
	line.LineSubtotal = base.Sub(line.DiscountAmount)

	switch {
	case !line.IsTaxable:
		line.TaxPercentage = decimal.Zero
		line.TaxAmount = decimal.Zero
	case tax != nil:
		line.TaxAmount = *tax
	default:
		line.TaxAmount = line.LineSubtotal.Mul(line.TaxPercentage).Div(hundred).Round(2)
	}
	line.LineTotal = line.LineSubtotal.Add(line.TaxAmount)
	return nil
}

// CalculateTotals recomputes the header amounts from computed lines. The
// subtotal is pre-tax so tax is counted once:
//
//	total = subtotal - discount + tax + shipping
func CalculateTotals(inv *Invoice, lines []InvoiceLineItem) error {
	if inv.ShippingAmount.IsNegative() {
		return ErrInvalidShipping
	}
	if !validPercentage(inv.DiscountPercentage) {
		return ErrInvalidPercentage
	}

	subtotal, tax := decimal.Zero, decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineSubtotal)
		tax = tax.Add(line.TaxAmount)
	}

	if inv.DiscountPercentage.IsPositive() {
		inv.DiscountAmount = subtotal.Mul(inv.DiscountPercentage).Div(hundred).Round(2)
	}
	if inv.DiscountAmount.IsNegative() {
		return ErrInvalidDiscount
	}
	if inv.DiscountAmount.GreaterThan(subtotal) {
		inv.DiscountAmount = subtotal
	}

	inv.Subtotal = subtotal
	inv.TaxAmount = tax
	inv.TotalAmount = subtotal.Sub(inv.DiscountAmount).Add(tax).Add(inv.ShippingAmount)
	if inv.PaidAmount.GreaterThan(inv.TotalAmount) {
		return ErrTotalBelowPaid
	}
	inv.BalanceDue = inv.TotalAmount.Sub(inv.PaidAmount)
	return nil
}

func validPercentage(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}
