package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/bookkeeping/internal/audit/domain"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	customerdomain "github.com/smallbiznis/bookkeeping/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/bookkeeping/internal/observability/metrics"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/bookkeeping/internal/payment/domain"
	"github.com/smallbiznis/bookkeeping/internal/sequence"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"github.com/smallbiznis/bookkeeping/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	Customers  customerdomain.Service
	Invoices   invoicedomain.PaymentApplier
	Ledger     ledgerdomain.PostingService
	Sequences  *sequence.Generator
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	customers  customerdomain.Service
	invoices   invoicedomain.PaymentApplier
	ledger     ledgerdomain.PostingService
	sequences  *sequence.Generator
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		customers:  p.Customers,
		invoices:   p.Invoices,
		ledger:     p.Ledger,
		sequences:  p.Sequences,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

var _ paymentdomain.Service = (*Service)(nil)

func (s *Service) CreatePayment(ctx context.Context, req paymentdomain.CreatePaymentRequest) (*paymentdomain.Payment, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, paymentdomain.ErrInvalidScope
	}
	req.PaymentNumber = strings.TrimSpace(req.PaymentNumber)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, fmt.Errorf("%w: %s", paymentdomain.ErrInvalidAmount, req.Amount.String())
	}
	if (req.DepositAccountID == nil) != (req.ReceivableAccountID == nil) {
		return nil, paymentdomain.ErrIncompleteAccounts
	}
	if _, err := s.customers.GetByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	payment := &paymentdomain.Payment{
		ID:                  s.genID.Generate(),
		TenantID:            scope.TenantID,
		CompanyID:           scope.CompanyID,
		CustomerID:          req.CustomerID,
		PaymentDate:         clock.Date(req.PaymentDate),
		PaymentMethod:       req.PaymentMethod,
		Reference:           strings.TrimSpace(req.Reference),
		PaymentAmount:       req.Amount,
		AllocatedAmount:     decimal.Zero,
		UnallocatedAmount:   req.Amount,
		Status:              paymentdomain.PaymentStatusPending,
		DepositAccountID:    req.DepositAccountID,
		ReceivableAccountID: req.ReceivableAccountID,
		Notes:               strings.TrimSpace(req.Notes),
		CreatedBy:           actorPtr(ctx, ""),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment.PaymentNumber = req.PaymentNumber
		if payment.PaymentNumber == "" {
			next, err := s.sequences.Next(ctx, tx, scope, sequence.Payment)
			if err != nil {
				return err
			}
			payment.PaymentNumber = sequence.Format("PAY", next)
		}
		existing, err := s.repo.FindByNumber(ctx, tx, scope, payment.PaymentNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", paymentdomain.ErrDuplicateNumber, payment.PaymentNumber)
		}

		if payment.DepositAccountID != nil {
			entryID, err := s.journalReceipt(ctx, tx, scope, payment)
			if err != nil {
				return err
			}
			payment.JournalEntryID = &entryID
		}

		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("%w: %s", paymentdomain.ErrDuplicateNumber, payment.PaymentNumber)
			}
			return err
		}
		if err := s.audit(ctx, tx, "payment.created", payment, nil); err != nil {
			return err
		}

		if len(req.Allocations) > 0 {
			return s.allocate(ctx, tx, scope, payment, payment.PaymentDate, req.Allocations)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentEvent(ctx, "created")
	s.log.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("payment_amount", payment.PaymentAmount.StringFixed(2)),
		zap.String("status", string(payment.Status)),
	)
	return payment, nil
}

// journalReceipt posts debit deposit, credit receivable for the full amount
// and returns the entry id.
func (s *Service) journalReceipt(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, payment *paymentdomain.Payment) (snowflake.ID, error) {
	description := fmt.Sprintf("Payment %s", payment.PaymentNumber)
	entry, err := s.ledger.CreateEntryTx(ctx, tx, scope, ledgerdomain.CreateEntryRequest{
		EntryDate:   payment.PaymentDate,
		Description: description,
		Reference:   payment.PaymentNumber,
		Lines: []ledgerdomain.LineInput{
			{AccountID: *payment.DepositAccountID, Description: description, DebitAmount: payment.PaymentAmount, CreditAmount: decimal.Zero},
			{AccountID: *payment.ReceivableAccountID, Description: description, DebitAmount: decimal.Zero, CreditAmount: payment.PaymentAmount},
		},
	})
	if err != nil {
		return 0, err
	}
	if _, err := s.ledger.PostEntryTx(ctx, tx, scope, ledgerdomain.PostEntryRequest{
		ID:          entry.ID,
		PostingDate: payment.PaymentDate,
	}); err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func (s *Service) ClearPayment(ctx context.Context, req paymentdomain.ClearPaymentRequest) (*paymentdomain.Payment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, req.ID, "payment.cleared", func(tx *gorm.DB, scope orgcontext.Scope, payment *paymentdomain.Payment) error {
		if payment.IsVoided {
			return fmt.Errorf("%w: %s", paymentdomain.ErrPaymentVoided, payment.PaymentNumber)
		}
		if payment.IsCleared {
			return fmt.Errorf("%w: %s", paymentdomain.ErrAlreadyCleared, payment.PaymentNumber)
		}
		cleared := clock.Today(s.clock)
		if !req.ClearedDate.IsZero() {
			cleared = clock.Date(req.ClearedDate)
		}
		payment.IsCleared = true
		payment.ClearedDate = &cleared
		payment.Status = paymentdomain.DeriveStatus(payment)
		return nil
	})
}

// VoidPayment requires every allocation to be voided first. A receipt
// journal entry is reversed in the same transaction.
func (s *Service) VoidPayment(ctx context.Context, req paymentdomain.VoidPaymentRequest) (*paymentdomain.Payment, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, req.ID, "payment.voided", func(tx *gorm.DB, scope orgcontext.Scope, payment *paymentdomain.Payment) error {
		if payment.IsVoided {
			return fmt.Errorf("%w: %s", paymentdomain.ErrPaymentVoided, payment.PaymentNumber)
		}
		if payment.AllocatedAmount.IsPositive() {
			return fmt.Errorf("%w: %s has %s allocated", paymentdomain.ErrHasAllocations, payment.PaymentNumber, payment.AllocatedAmount.StringFixed(2))
		}

		voidedBy := orgcontext.ResolveActor(ctx, req.VoidedBy)
		if payment.JournalEntryID != nil {
			if _, err := s.ledger.ReverseEntryTx(ctx, tx, scope, ledgerdomain.ReverseEntryRequest{
				ID:           *payment.JournalEntryID,
				ReversalDate: clock.Today(s.clock),
				Description:  fmt.Sprintf("Void payment %s", payment.PaymentNumber),
				ReversedBy:   voidedBy,
			}); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		payment.IsVoided = true
		payment.VoidedAt = &now
		payment.VoidedBy = actorPtr(ctx, req.VoidedBy)
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			payment.VoidReason = &reason
		}
		payment.Status = paymentdomain.DeriveStatus(payment)
		return nil
	})
}

func (s *Service) GetPayment(ctx context.Context, id snowflake.ID) (*paymentdomain.Payment, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, paymentdomain.ErrInvalidScope
	}
	if id == 0 {
		return nil, paymentdomain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	payment.Allocations, err = s.repo.ListAllocations(ctx, s.db, scope, paymentdomain.AllocationFilter{PaymentID: payment.ID})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) ListPayments(ctx context.Context, req paymentdomain.ListPaymentRequest) (paymentdomain.ListPaymentResponse, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidScope
	}
	if req.Status != "" && !req.Status.Valid() {
		return paymentdomain.ListPaymentResponse{}, fmt.Errorf("%w: status %q", validation.ErrInvalidRequest, req.Status)
	}

	items, err := s.repo.List(ctx, s.db, scope, paymentdomain.ListFilter{
		Status:     req.Status,
		CustomerID: req.CustomerID,
	}, req.Pagination)
	if err != nil {
		if strings.TrimSpace(req.PageToken) != "" {
			return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidPageToken
		}
		return paymentdomain.ListPaymentResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, req.Limit(), func(item paymentdomain.Payment) snowflake.ID {
		return item.ID
	})
	return paymentdomain.ListPaymentResponse{PageInfo: pageInfo, Payments: items}, nil
}

func (s *Service) ListAllocations(ctx context.Context, req paymentdomain.ListAllocationRequest) ([]paymentdomain.PaymentAllocation, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, paymentdomain.ErrInvalidScope
	}
	return s.repo.ListAllocations(ctx, s.db, scope, paymentdomain.AllocationFilter{
		PaymentID:     req.PaymentID,
		InvoiceID:     req.InvoiceID,
		IncludeVoided: req.IncludeVoided,
	})
}

// mutate locks the payment, applies change and persists it with an audit
// row in one transaction.
func (s *Service) mutate(ctx context.Context, id snowflake.ID, action string, change func(*gorm.DB, orgcontext.Scope, *paymentdomain.Payment) error) (*paymentdomain.Payment, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, paymentdomain.ErrInvalidScope
	}

	var payment *paymentdomain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		payment, err = s.lockPayment(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if err := change(tx, scope, payment); err != nil {
			return err
		}
		payment.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}
		return s.audit(ctx, tx, action, payment, nil)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordPaymentEvent(ctx, strings.TrimPrefix(action, "payment."))
	s.log.Info("payment updated",
		zap.String("payment_id", payment.ID.String()),
		zap.String("action", action),
		zap.String("status", string(payment.Status)),
	)
	return payment, nil
}

func (s *Service) lockPayment(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*paymentdomain.Payment, error) {
	if id == 0 {
		return nil, paymentdomain.ErrInvalidID
	}
	payment, err := s.repo.FindByIDForUpdate(ctx, tx, scope, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, payment *paymentdomain.Payment, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	payload := map[string]any{
		"payment_number":     payment.PaymentNumber,
		"status":             string(payment.Status),
		"payment_amount":     payment.PaymentAmount.StringFixed(2),
		"allocated_amount":   payment.AllocatedAmount.StringFixed(2),
		"unallocated_amount": payment.UnallocatedAmount.StringFixed(2),
	}
	for k, v := range metadata {
		payload[k] = v
	}
	return s.auditSvc.AuditLogTx(ctx, tx, action, "payment", payment.ID.String(), payload)
}

func actorPtr(ctx context.Context, explicit string) *string {
	actor := orgcontext.ResolveActor(ctx, explicit)
	if actor == "" {
		return nil
	}
	return &actor
}
