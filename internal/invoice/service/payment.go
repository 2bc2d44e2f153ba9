package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"gorm.io/gorm"
)

func (s *Service) LockInvoice(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return s.lockInvoice(ctx, tx, scope, id)
}

// ApplyPayment adds amount to the paid total. The amount may not exceed the
// balance due.
func (s *Service) ApplyPayment(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID, amount decimal.Decimal) (*invoicedomain.Invoice, error) {
	if !amount.IsPositive() {
		return nil, invoicedomain.ErrInvalidAmount
	}
	invoice, err := s.lockInvoice(ctx, tx, scope, id)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.AcceptsPayments() {
		return nil, fmt.Errorf("%w: %s is %s", invoicedomain.ErrNotPayable, invoice.InvoiceNumber, invoice.Status)
	}
	if amount.GreaterThan(invoice.BalanceDue) {
		return nil, fmt.Errorf("%w: %s exceeds %s", invoicedomain.ErrOverpayment, amount.StringFixed(2), invoice.BalanceDue.StringFixed(2))
	}

	if err := s.writePaid(ctx, tx, invoice, invoice.PaidAmount.Add(amount), "invoice.payment_applied", amount); err != nil {
		return nil, err
	}
	s.obsMetrics.RecordInvoiceEvent(ctx, "payment_applied")
	return invoice, nil
}

// ReversePaymentApplication takes amount back off the paid total.
func (s *Service) ReversePaymentApplication(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID, amount decimal.Decimal) (*invoicedomain.Invoice, error) {
	if !amount.IsPositive() {
		return nil, invoicedomain.ErrInvalidAmount
	}
	invoice, err := s.lockInvoice(ctx, tx, scope, id)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(invoice.PaidAmount) {
		return nil, fmt.Errorf("%w: %s exceeds %s", invoicedomain.ErrReversalExceedsPaid, amount.StringFixed(2), invoice.PaidAmount.StringFixed(2))
	}

	if err := s.writePaid(ctx, tx, invoice, invoice.PaidAmount.Sub(amount), "invoice.payment_reversed", amount); err != nil {
		return nil, err
	}
	s.obsMetrics.RecordInvoiceEvent(ctx, "payment_reversed")
	return invoice, nil
}

func (s *Service) writePaid(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, paid decimal.Decimal, action string, amount decimal.Decimal) error {
	expected := invoice.PaidAmount
	invoice.PaidAmount = paid
	invoice.BalanceDue = invoice.TotalAmount.Sub(paid)
	invoice.Status = invoicedomain.PaymentStatus(paid, invoice.TotalAmount)
	invoice.UpdatedAt = s.clock.Now()

	rows, err := s.repo.UpdatePayment(ctx, tx, invoice, expected)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", invoicedomain.ErrConcurrentUpdate, invoice.InvoiceNumber)
	}
	return s.audit(ctx, tx, action, invoice, map[string]any{"amount": amount.StringFixed(2)})
}
