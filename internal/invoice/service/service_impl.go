package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	auditdomain "github.com/smallbiznis/bookkeeping/internal/audit/domain"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	customerdomain "github.com/smallbiznis/bookkeeping/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/bookkeeping/internal/observability/metrics"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/internal/sequence"
	taxdomain "github.com/smallbiznis/bookkeeping/internal/tax/domain"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"github.com/smallbiznis/bookkeeping/pkg/repository"
	"github.com/smallbiznis/bookkeeping/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       invoicedomain.Repository
	Customers  customerdomain.Service
	Accounts   accountdomain.PostingService
	Tax        taxdomain.Calculator
	Sequences  *sequence.Generator
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo       invoicedomain.Repository
	linerepo   repository.Repository[invoicedomain.InvoiceLineItem]
	customers  customerdomain.Service
	accounts   accountdomain.PostingService
	tax        taxdomain.Calculator
	sequences  *sequence.Generator
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,

		repo:       p.Repo,
		linerepo:   repository.ProvideStore[invoicedomain.InvoiceLineItem](p.DB),
		customers:  p.Customers,
		accounts:   p.Accounts,
		tax:        p.Tax,
		sequences:  p.Sequences,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

var (
	_ invoicedomain.Service        = (*Service)(nil)
	_ invoicedomain.PaymentApplier = (*Service)(nil)
)

func (s *Service) CreateInvoice(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidScope
	}
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, invoicedomain.ErrNoLines
	}
	if _, err := s.customers.GetByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoice := &invoicedomain.Invoice{
		ID:                 s.genID.Generate(),
		TenantID:           scope.TenantID,
		CompanyID:          scope.CompanyID,
		CustomerID:         req.CustomerID,
		InvoiceDate:        clock.Date(req.InvoiceDate),
		DueDate:            clock.Date(req.DueDate),
		Status:             invoicedomain.InvoiceStatusDraft,
		DiscountPercentage: req.DiscountPercentage,
		DiscountAmount:     req.DiscountAmount,
		ShippingAmount:     req.ShippingAmount,
		PaidAmount:         decimal.Zero,
		Notes:              strings.TrimSpace(req.Notes),
		CreatedBy:          actorPtr(ctx),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if invoice.DueDate.Before(invoice.InvoiceDate) {
		return nil, invoicedomain.ErrInvalidDueDate
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := s.buildLines(ctx, tx, scope, invoice, req.Lines)
		if err != nil {
			return err
		}
		if err := invoicedomain.CalculateTotals(invoice, lines); err != nil {
			return err
		}

		invoice.InvoiceNumber = req.InvoiceNumber
		if invoice.InvoiceNumber == "" {
			next, err := s.sequences.Next(ctx, tx, scope, sequence.Invoice)
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = sequence.Format("INV", next)
		}
		existing, err := s.repo.FindByNumber(ctx, tx, scope, invoice.InvoiceNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", invoicedomain.ErrDuplicateNumber, invoice.InvoiceNumber)
		}

		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("%w: %s", invoicedomain.ErrDuplicateNumber, invoice.InvoiceNumber)
			}
			return err
		}
		if err := s.linerepo.WithTrx(tx).BatchCreate(ctx, linePtrs(lines)); err != nil {
			return err
		}
		invoice.Lines = lines
		return s.audit(ctx, tx, "invoice.created", invoice, nil)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordInvoiceEvent(ctx, "created")
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total_amount", invoice.TotalAmount.StringFixed(2)),
	)
	return invoice, nil
}

func (s *Service) UpdateInvoice(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.Invoice, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.CustomerID != nil {
		if _, err := s.customers.GetByID(ctx, *req.CustomerID); err != nil {
			return nil, err
		}
	}

	var invoice *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.lockInvoice(ctx, tx, scope, req.ID)
		if err != nil {
			return err
		}
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return fmt.Errorf("%w: %s is %s", invoicedomain.ErrNotDraft, invoice.InvoiceNumber, invoice.Status)
		}

		if req.CustomerID != nil {
			invoice.CustomerID = *req.CustomerID
		}
		if req.InvoiceDate != nil {
			invoice.InvoiceDate = clock.Date(*req.InvoiceDate)
		}
		if req.DueDate != nil {
			invoice.DueDate = clock.Date(*req.DueDate)
		}
		if invoice.DueDate.Before(invoice.InvoiceDate) {
			return invoicedomain.ErrInvalidDueDate
		}
		if req.DiscountPercentage != nil {
			// The stored amount was derived from the old percentage.
			if invoice.DiscountPercentage.IsPositive() && req.DiscountAmount == nil {
				invoice.DiscountAmount = decimal.Zero
			}
			invoice.DiscountPercentage = *req.DiscountPercentage
		}
		if req.DiscountAmount != nil {
			invoice.DiscountAmount = *req.DiscountAmount
		}
		if req.ShippingAmount != nil {
			invoice.ShippingAmount = *req.ShippingAmount
		}
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}

		var lines []invoicedomain.InvoiceLineItem
		if req.Lines != nil {
			if len(req.Lines) == 0 {
				return invoicedomain.ErrNoLines
			}
			lines, err = s.buildLines(ctx, tx, scope, invoice, req.Lines)
			if err != nil {
				return err
			}
			if err := s.linerepo.WithTrx(tx).Delete(ctx, &invoicedomain.InvoiceLineItem{InvoiceID: invoice.ID}); err != nil {
				return err
			}
			if err := s.linerepo.WithTrx(tx).BatchCreate(ctx, linePtrs(lines)); err != nil {
				return err
			}
		} else {
			lines, err = s.listLines(ctx, tx, invoice.ID)
			if err != nil {
				return err
			}
		}
		if err := invoicedomain.CalculateTotals(invoice, lines); err != nil {
			return err
		}

		invoice.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		invoice.Lines = lines
		return s.audit(ctx, tx, "invoice.updated", invoice, nil)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) SendInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return s.transition(ctx, id, "invoice.sent", func(invoice *invoicedomain.Invoice, now time.Time) error {
		if !invoice.Status.CanTransitionTo(invoicedomain.InvoiceStatusSent) {
			return fmt.Errorf("%w: %s to %s", invoicedomain.ErrInvalidTransition, invoice.Status, invoicedomain.InvoiceStatusSent)
		}
		invoice.Status = invoicedomain.InvoiceStatusSent
		invoice.SentAt = &now
		return nil
	})
}

func (s *Service) VoidInvoice(ctx context.Context, req invoicedomain.VoidInvoiceRequest) (*invoicedomain.Invoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, req.ID, "invoice.voided", func(invoice *invoicedomain.Invoice, now time.Time) error {
		if invoice.PaidAmount.IsPositive() {
			return fmt.Errorf("%w: %s paid %s", invoicedomain.ErrHasPayments, invoice.InvoiceNumber, invoice.PaidAmount.StringFixed(2))
		}
		if !invoice.Status.CanTransitionTo(invoicedomain.InvoiceStatusVoid) {
			return fmt.Errorf("%w: %s to %s", invoicedomain.ErrInvalidTransition, invoice.Status, invoicedomain.InvoiceStatusVoid)
		}
		invoice.Status = invoicedomain.InvoiceStatusVoid
		invoice.VoidedAt = &now
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			invoice.VoidReason = &reason
		}
		return nil
	})
}

func (s *Service) CancelInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return s.transition(ctx, id, "invoice.cancelled", func(invoice *invoicedomain.Invoice, now time.Time) error {
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return fmt.Errorf("%w: %s is %s", invoicedomain.ErrNotDraft, invoice.InvoiceNumber, invoice.Status)
		}
		invoice.Status = invoicedomain.InvoiceStatusCancelled
		return nil
	})
}

// MarkOverdue flags every issued invoice past its due date with an open
// balance as of asOf and returns how many changed.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return 0, invoicedomain.ErrInvalidScope
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}

	marked := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidates, err := s.repo.ListOverdueCandidates(ctx, tx, scope, clock.Date(asOf))
		if err != nil {
			return err
		}
		now := s.clock.Now()
		for i := range candidates {
			invoice := &candidates[i]
			if !invoice.IsOverdue(asOf) || !invoice.Status.CanTransitionTo(invoicedomain.InvoiceStatusOverdue) {
				continue
			}
			invoice.Status = invoicedomain.InvoiceStatusOverdue
			invoice.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, invoice); err != nil {
				return err
			}
			if err := s.audit(ctx, tx, "invoice.overdue", invoice, nil); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.log.Info("invoices marked overdue", zap.Int("count", marked), zap.Time("as_of", asOf))
	}
	return marked, nil
}

func (s *Service) GetInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidScope
	}
	if id == 0 {
		return nil, invoicedomain.ErrInvalidID
	}

	invoice, err := s.repo.FindByID(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	invoice.Lines, err = s.listLines(ctx, s.db, invoice.ID)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) ListInvoices(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidScope
	}
	if req.Status != "" && !req.Status.Valid() {
		return invoicedomain.ListInvoiceResponse{}, fmt.Errorf("%w: status %q", validation.ErrInvalidRequest, req.Status)
	}

	items, err := s.repo.List(ctx, s.db, scope, invoicedomain.ListFilter{
		Status:     req.Status,
		CustomerID: req.CustomerID,
	}, req.Pagination)
	if err != nil {
		if strings.TrimSpace(req.PageToken) != "" {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, req.Limit(), func(item invoicedomain.Invoice) snowflake.ID {
		return item.ID
	})
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: items}, nil
}

// transition locks the invoice, lets mutate change it and persists the
// result with an audit row.
func (s *Service) transition(ctx context.Context, id snowflake.ID, action string, mutate func(*invoicedomain.Invoice, time.Time) error) (*invoicedomain.Invoice, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, invoicedomain.ErrInvalidScope
	}

	var invoice *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.lockInvoice(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := mutate(invoice, now); err != nil {
			return err
		}
		invoice.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		return s.audit(ctx, tx, action, invoice, nil)
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordInvoiceEvent(ctx, strings.TrimPrefix(action, "invoice."))
	s.log.Info("invoice status changed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", string(invoice.Status)),
	)
	return invoice, nil
}

func (s *Service) lockInvoice(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*invoicedomain.Invoice, error) {
	if id == 0 {
		return nil, invoicedomain.ErrInvalidID
	}
	invoice, err := s.repo.FindByIDForUpdate(ctx, tx, scope, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) listLines(ctx context.Context, conn *gorm.DB, invoiceID snowflake.ID) ([]invoicedomain.InvoiceLineItem, error) {
	items, err := s.linerepo.WithTrx(conn).Find(ctx, &invoicedomain.InvoiceLineItem{InvoiceID: invoiceID}, repository.OrderBy("line_number ASC"))
	if err != nil {
		return nil, err
	}
	lines := make([]invoicedomain.InvoiceLineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, *item)
	}
	return lines, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, invoice *invoicedomain.Invoice, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	payload := map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"status":         string(invoice.Status),
		"total_amount":   invoice.TotalAmount.StringFixed(2),
		"paid_amount":    invoice.PaidAmount.StringFixed(2),
	}
	for k, v := range metadata {
		payload[k] = v
	}
	return s.auditSvc.AuditLogTx(ctx, tx, action, "invoice", invoice.ID.String(), payload)
}

func linePtrs(lines []invoicedomain.InvoiceLineItem) []*invoicedomain.InvoiceLineItem {
	ptrs := make([]*invoicedomain.InvoiceLineItem, 0, len(lines))
	for i := range lines {
		ptrs = append(ptrs, &lines[i])
	}
	return ptrs
}

func actorPtr(ctx context.Context) *string {
	actor := orgcontext.ActorFromContext(ctx)
	if actor == "" {
		return nil
	}
	return &actor
}
