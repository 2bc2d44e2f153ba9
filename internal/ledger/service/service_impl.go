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
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/bookkeeping/internal/observability/metrics"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
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
	Repo       ledgerdomain.Repository
	Accounts   accountdomain.PostingService
	Sequences  *sequence.Generator
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	accounts   accountdomain.PostingService
	sequences  *sequence.Generator
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		accounts:   p.Accounts,
		sequences:  p.Sequences,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

var (
	_ ledgerdomain.Service        = (*Service)(nil)
	_ ledgerdomain.PostingService = (*Service)(nil)
)

func (s *Service) CreateEntry(ctx context.Context, req ledgerdomain.CreateEntryRequest) (*ledgerdomain.JournalEntry, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidScope
	}

	var entry *ledgerdomain.JournalEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreateEntryTx(ctx, tx, scope, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("journal entry created",
		zap.String("entry_id", entry.ID.String()),
		zap.String("entry_number", entry.EntryNumber),
		zap.String("total", entry.TotalDebit.StringFixed(2)),
	)
	return entry, nil
}

// CreateEntryTx stores a balanced draft entry inside tx.
func (s *Service) CreateEntryTx(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, req ledgerdomain.CreateEntryRequest) (*ledgerdomain.JournalEntry, error) {
	if !scope.Valid() {
		return nil, ledgerdomain.ErrInvalidScope
	}
	req.EntryNumber = strings.TrimSpace(req.EntryNumber)
	req.Description = strings.TrimSpace(req.Description)
	req.Reference = strings.TrimSpace(req.Reference)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	totalDebit, totalCredit, err := ledgerdomain.ValidateLines(req.Lines)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.ResolvePostable(ctx, tx, scope, lineAccountIDs(req.Lines)); err != nil {
		return nil, err
	}

	number := req.EntryNumber
	if number == "" {
		next, err := s.sequences.Next(ctx, tx, scope, sequence.JournalEntry)
		if err != nil {
			return nil, err
		}
		number = sequence.Format("JE", next)
	}
	existing, err := s.repo.FindByNumber(ctx, tx, scope, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ledgerdomain.ErrDuplicateEntryNumber, number)
	}

	now := s.clock.Now()
	entry := &ledgerdomain.JournalEntry{
		ID:          s.genID.Generate(),
		TenantID:    scope.TenantID,
		CompanyID:   scope.CompanyID,
		EntryNumber: number,
		EntryDate:   clock.Date(req.EntryDate),
		Description: req.Description,
		Reference:   req.Reference,
		Status:      ledgerdomain.EntryStatusDraft,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		CreatedBy:   actorPtr(ctx, ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertEntry(ctx, tx, entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: %s", ledgerdomain.ErrDuplicateEntryNumber, number)
		}
		return nil, err
	}

	entry.Lines = s.buildLines(entry, req.Lines, now)
	if err := s.repo.InsertLines(ctx, tx, entry.Lines); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, tx, "journal_entry.created", entry, nil); err != nil {
		return nil, err
	}
	s.obsMetrics.RecordJournalEntry(ctx, "created")
	return entry, nil
}

func (s *Service) UpdateEntry(ctx context.Context, req ledgerdomain.UpdateEntryRequest) (*ledgerdomain.JournalEntry, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var entry *ledgerdomain.JournalEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.lockDraft(ctx, tx, scope, req.ID)
		if err != nil {
			return err
		}

		if req.EntryDate != nil {
			entry.EntryDate = clock.Date(*req.EntryDate)
		}
		if req.Description != nil {
			entry.Description = strings.TrimSpace(*req.Description)
		}
		if req.Reference != nil {
			entry.Reference = strings.TrimSpace(*req.Reference)
		}

		now := s.clock.Now()
		if req.Lines != nil {
			entry.TotalDebit, entry.TotalCredit, err = ledgerdomain.ValidateLines(req.Lines)
			if err != nil {
				return err
			}
			if _, err := s.accounts.ResolvePostable(ctx, tx, scope, lineAccountIDs(req.Lines)); err != nil {
				return err
			}
			if err := s.repo.DeleteLines(ctx, tx, scope, entry.ID); err != nil {
				return err
			}
			entry.Lines = s.buildLines(entry, req.Lines, now)
			if err := s.repo.InsertLines(ctx, tx, entry.Lines); err != nil {
				return err
			}
		} else {
			entry.Lines, err = s.repo.ListLines(ctx, tx, scope, entry.ID)
			if err != nil {
				return err
			}
		}

		entry.UpdatedAt = now
		rows, err := s.repo.UpdateDraft(ctx, tx, entry)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ledgerdomain.ErrConcurrentUpdate, entry.EntryNumber)
		}
		return s.audit(ctx, tx, "journal_entry.updated", entry, nil)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) DeleteEntry(ctx context.Context, id snowflake.ID) error {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return ledgerdomain.ErrInvalidScope
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.lockDraft(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteLines(ctx, tx, scope, entry.ID); err != nil {
			return err
		}
		if err := s.repo.DeleteEntry(ctx, tx, scope, entry.ID); err != nil {
			return err
		}
		return s.audit(ctx, tx, "journal_entry.deleted", entry, nil)
	})
}

func (s *Service) VoidEntry(ctx context.Context, id snowflake.ID) (*ledgerdomain.JournalEntry, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidScope
	}

	var entry *ledgerdomain.JournalEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.lockDraft(ctx, tx, scope, id)
		if err != nil {
			return err
		}

		entry.Status = ledgerdomain.EntryStatusVoid
		entry.UpdatedAt = s.clock.Now()
		if err := s.transition(ctx, tx, entry, ledgerdomain.EntryStatusDraft); err != nil {
			return err
		}
		return s.audit(ctx, tx, "journal_entry.voided", entry, nil)
	})
	if err != nil {
		return nil, err
	}
	s.obsMetrics.RecordJournalEntry(ctx, "voided")
	return entry, nil
}

func (s *Service) GetEntry(ctx context.Context, id snowflake.ID) (*ledgerdomain.JournalEntry, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidScope
	}
	if id == 0 {
		return nil, ledgerdomain.ErrInvalidID
	}

	entry, err := s.repo.FindByID(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ledgerdomain.ErrNotFound
	}
	entry.Lines, err = s.repo.ListLines(ctx, s.db, scope, entry.ID)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) ListEntries(ctx context.Context, req ledgerdomain.ListEntryRequest) (ledgerdomain.ListEntryResponse, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return ledgerdomain.ListEntryResponse{}, ledgerdomain.ErrInvalidScope
	}
	if req.Status != "" && !req.Status.Valid() {
		return ledgerdomain.ListEntryResponse{}, fmt.Errorf("%w: status %q", validation.ErrInvalidRequest, req.Status)
	}
	from, to := normalizeRange(req.From, req.To)
	if from != nil && to != nil && from.After(*to) {
		return ledgerdomain.ListEntryResponse{}, ledgerdomain.ErrInvalidDateRange
	}

	items, err := s.repo.List(ctx, s.db, scope, ledgerdomain.ListFilter{
		Status: req.Status,
		From:   from,
		To:     to,
	}, req.Pagination)
	if err != nil {
		if strings.TrimSpace(req.PageToken) != "" {
			return ledgerdomain.ListEntryResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		return ledgerdomain.ListEntryResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, req.Limit(), func(item ledgerdomain.JournalEntry) snowflake.ID {
		return item.ID
	})
	return ledgerdomain.ListEntryResponse{Entries: items, PageInfo: pageInfo}, nil
}

// GetAccountTransactions replays the posted lines touching an account. The
// opening balance sums everything before From; running balances are debit
// minus credit.
func (s *Service) GetAccountTransactions(ctx context.Context, req ledgerdomain.AccountTransactionsRequest) (*ledgerdomain.AccountTransactions, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	from, to := normalizeRange(req.From, req.To)
	if from != nil && to != nil && from.After(*to) {
		return nil, ledgerdomain.ErrInvalidDateRange
	}

	lines, err := s.repo.ListPostedLines(ctx, s.db, scope, ledgerdomain.PostedLineFilter{
		AccountIDs: []snowflake.ID{req.AccountID},
		To:         to,
	})
	if err != nil {
		return nil, err
	}
	return Replay(req.AccountID, lines, from), nil
}

// Replay folds posted lines of one account into a statement. Lines dated
// before from feed the opening balance.
func Replay(accountID snowflake.ID, lines []ledgerdomain.PostedLine, from *time.Time) *ledgerdomain.AccountTransactions {
	result := &ledgerdomain.AccountTransactions{
		AccountID:      accountID,
		OpeningBalance: decimal.Zero,
		Transactions:   []ledgerdomain.AccountTransaction{},
	}

	running := decimal.Zero
	for _, line := range lines {
		if from != nil && line.EntryDate.Before(*from) {
			result.OpeningBalance = result.OpeningBalance.Add(line.Net())
			running = result.OpeningBalance
			continue
		}
		running = running.Add(line.Net())
		description := line.Description
		if description == "" {
			description = line.EntryDescription
		}
		result.Transactions = append(result.Transactions, ledgerdomain.AccountTransaction{
			EntryID:        line.EntryID,
			EntryNumber:    line.EntryNumber,
			EntryDate:      line.EntryDate,
			Description:    description,
			LineNumber:     line.LineNumber,
			DebitAmount:    line.DebitAmount,
			CreditAmount:   line.CreditAmount,
			RunningBalance: running,
		})
	}
	result.ClosingBalance = running
	return result
}

func (s *Service) lockDraft(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*ledgerdomain.JournalEntry, error) {
	if id == 0 {
		return nil, ledgerdomain.ErrInvalidID
	}
	entry, err := s.repo.FindByIDForUpdate(ctx, tx, scope, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ledgerdomain.ErrNotFound
	}
	if entry.Status != ledgerdomain.EntryStatusDraft {
		return nil, fmt.Errorf("%w: %s is %s", ledgerdomain.ErrNotDraft, entry.EntryNumber, entry.Status)
	}
	return entry, nil
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, entry *ledgerdomain.JournalEntry, from ledgerdomain.EntryStatus) error {
	if !from.CanTransitionTo(entry.Status) {
		return fmt.Errorf("%w: %s to %s", ledgerdomain.ErrNotDraft, from, entry.Status)
	}
	rows, err := s.repo.Transition(ctx, tx, entry, from)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ledgerdomain.ErrConcurrentUpdate, entry.EntryNumber)
	}
	return nil
}

func (s *Service) buildLines(entry *ledgerdomain.JournalEntry, inputs []ledgerdomain.LineInput, now time.Time) []ledgerdomain.JournalEntryLine {
	lines := make([]ledgerdomain.JournalEntryLine, 0, len(inputs))
	for i, in := range inputs {
		lines = append(lines, ledgerdomain.JournalEntryLine{
			ID:           s.genID.Generate(),
			TenantID:     entry.TenantID,
			CompanyID:    entry.CompanyID,
			EntryID:      entry.ID,
			LineNumber:   i + 1,
			AccountID:    in.AccountID,
			Description:  strings.TrimSpace(in.Description),
			DebitAmount:  in.DebitAmount,
			CreditAmount: in.CreditAmount,
			CreatedAt:    now,
		})
	}
	return lines
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, entry *ledgerdomain.JournalEntry, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	payload := map[string]any{
		"entry_number": entry.EntryNumber,
		"status":       string(entry.Status),
		"total":        entry.TotalDebit.StringFixed(2),
	}
	for k, v := range metadata {
		payload[k] = v
	}
	return s.auditSvc.AuditLogTx(ctx, tx, action, "journal_entry", entry.ID.String(), payload)
}

func lineAccountIDs(lines []ledgerdomain.LineInput) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.AccountID)
	}
	return ids
}

func actorPtr(ctx context.Context, explicit string) *string {
	actor := orgcontext.ResolveActor(ctx, explicit)
	if actor == "" {
		return nil
	}
	return &actor
}

func normalizeRange(from, to *time.Time) (*time.Time, *time.Time) {
	var f, t *time.Time
	if from != nil {
		d := clock.Date(*from)
		f = &d
	}
	if to != nil {
		d := clock.Date(*to)
		t = &d
	}
	return f, t
}
