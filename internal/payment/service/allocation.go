package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/bookkeeping/internal/payment/domain"
	"github.com/smallbiznis/bookkeeping/pkg/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) Allocate(ctx context.Context, req paymentdomain.AllocateRequest) (*paymentdomain.Payment, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, paymentdomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	date := clock.Today(s.clock)
	if !req.AllocationDate.IsZero() {
		date = clock.Date(req.AllocationDate)
	}

	var payment *paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.lockPayment(ctx, tx, scope, req.PaymentID)
		if err != nil {
			return err
		}
		return s.allocate(ctx, tx, scope, payment, date, req.Allocations)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment allocated",
		zap.String("payment_id", payment.ID.String()),
		zap.Int("allocations", len(req.Allocations)),
		zap.String("unallocated_amount", payment.UnallocatedAmount.StringFixed(2)),
	)
	return payment, nil
}

// allocate checks every allocation before touching any invoice, then
// records them and recomputes the payment totals from the active set.
func (s *Service) allocate(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, payment *paymentdomain.Payment, date time.Time, inputs []paymentdomain.AllocationInput) error {
	if payment.IsVoided {
		return fmt.Errorf("%w: %s", paymentdomain.ErrPaymentVoided, payment.PaymentNumber)
	}
	if len(inputs) == 0 {
		return paymentdomain.ErrNoAllocations
	}

	active, err := s.repo.ListAllocations(ctx, tx, scope, paymentdomain.AllocationFilter{PaymentID: payment.ID})
	if err != nil {
		return err
	}
	seen := make(map[snowflake.ID]struct{}, len(active)+len(inputs))
	for _, a := range active {
		seen[a.InvoiceID] = struct{}{}
	}

	running := decimal.Zero
	for _, in := range inputs {
		if _, dup := seen[in.InvoiceID]; dup {
			return fmt.Errorf("%w: invoice %s", paymentdomain.ErrDuplicateAllocation, in.InvoiceID)
		}
		seen[in.InvoiceID] = struct{}{}

		if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
			return fmt.Errorf("%w: %s", paymentdomain.ErrInvalidAmount, in.Amount.String())
		}
		invoice, err := s.invoices.LockInvoice(ctx, tx, scope, in.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.CustomerID != payment.CustomerID {
			return fmt.Errorf("%w: invoice %s", paymentdomain.ErrCustomerMismatch, invoice.InvoiceNumber)
		}
		if !invoice.Status.AcceptsPayments() {
			return fmt.Errorf("%w: %s is %s", paymentdomain.ErrInvoiceNotPayable, invoice.InvoiceNumber, invoice.Status)
		}
		if !invoice.BalanceDue.IsPositive() {
			return fmt.Errorf("%w: %s", paymentdomain.ErrNoBalanceDue, invoice.InvoiceNumber)
		}
		if in.Amount.GreaterThan(invoice.BalanceDue) {
			return fmt.Errorf("%w: %s exceeds %s on %s", paymentdomain.ErrExceedsBalanceDue,
				in.Amount.StringFixed(2), invoice.BalanceDue.StringFixed(2), invoice.InvoiceNumber)
		}
		running = running.Add(in.Amount)
		if running.GreaterThan(payment.UnallocatedAmount) {
			return fmt.Errorf("%w: %s exceeds %s", paymentdomain.ErrExceedsUnallocated,
				running.StringFixed(2), payment.UnallocatedAmount.StringFixed(2))
		}
	}

	now := s.clock.Now()
	createdBy := actorPtr(ctx, "")
	for _, in := range inputs {
		allocation := &paymentdomain.PaymentAllocation{
			ID:               s.genID.Generate(),
			TenantID:         scope.TenantID,
			CompanyID:        scope.CompanyID,
			PaymentID:        payment.ID,
			InvoiceID:        in.InvoiceID,
			AllocationAmount: in.Amount,
			AllocationDate:   date,
			CreatedBy:        createdBy,
			CreatedAt:        now,
		}
		if err := s.repo.InsertAllocation(ctx, tx, allocation); err != nil {
			return err
		}
		if _, err := s.invoices.ApplyPayment(ctx, tx, scope, in.InvoiceID, in.Amount); err != nil {
			return err
		}
		s.obsMetrics.RecordPaymentEvent(ctx, "allocated")
	}

	if err := s.recompute(ctx, tx, scope, payment); err != nil {
		return err
	}
	return s.audit(ctx, tx, "payment.allocated", payment, map[string]any{"allocations": len(inputs)})
}

// VoidAllocation takes the allocated amount back off the invoice and
// returns it to the payment's unallocated balance.
func (s *Service) VoidAllocation(ctx context.Context, req paymentdomain.VoidAllocationRequest) (*paymentdomain.Payment, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, paymentdomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var payment *paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocation, err := s.repo.FindAllocationForUpdate(ctx, tx, scope, req.ID)
		if err != nil {
			return err
		}
		if allocation == nil {
			return paymentdomain.ErrAllocationNotFound
		}
		if allocation.IsVoided {
			return fmt.Errorf("%w: %s", paymentdomain.ErrAllocationVoided, allocation.ID)
		}
		payment, err = s.lockPayment(ctx, tx, scope, allocation.PaymentID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		allocation.IsVoided = true
		allocation.VoidedAt = &now
		allocation.VoidedBy = actorPtr(ctx, req.VoidedBy)
		rows, err := s.repo.VoidAllocation(ctx, tx, allocation)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: allocation %s", paymentdomain.ErrConcurrentUpdate, allocation.ID)
		}
		if _, err := s.invoices.ReversePaymentApplication(ctx, tx, scope, allocation.InvoiceID, allocation.AllocationAmount); err != nil {
			return err
		}

		if err := s.recompute(ctx, tx, scope, payment); err != nil {
			return err
		}
		return s.audit(ctx, tx, "payment.allocation_voided", payment, map[string]any{
			"allocation_id": allocation.ID.String(),
			"invoice_id":    allocation.InvoiceID.String(),
			"amount":        allocation.AllocationAmount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentEvent(ctx, "allocation_voided")
	s.log.Info("payment allocation voided",
		zap.String("allocation_id", req.ID.String()),
		zap.String("payment_id", payment.ID.String()),
	)
	return payment, nil
}

func (s *Service) recompute(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, payment *paymentdomain.Payment) error {
	allocated, err := s.repo.SumActiveAllocations(ctx, tx, scope, payment.ID)
	if err != nil {
		return err
	}
	payment.Recompute(allocated)
	payment.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, tx, payment); err != nil {
		return err
	}
	payment.Allocations, err = s.repo.ListAllocations(ctx, tx, scope, paymentdomain.AllocationFilter{PaymentID: payment.ID})
	return err
}
