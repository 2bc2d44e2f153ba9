package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/internal/sequence"
	"github.com/smallbiznis/bookkeeping/pkg/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) PostEntry(ctx context.Context, req ledgerdomain.PostEntryRequest) (*ledgerdomain.JournalEntry, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidScope
	}

	var entry *ledgerdomain.JournalEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.PostEntryTx(ctx, tx, scope, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("journal entry posted",
		zap.String("entry_id", entry.ID.String()),
		zap.String("entry_number", entry.EntryNumber),
		zap.String("total", entry.TotalDebit.StringFixed(2)),
	)
	return entry, nil
}

// PostEntryTx applies a draft entry to account balances inside tx. Every
// line goes through UpdateBalance exactly once.
func (s *Service) PostEntryTx(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, req ledgerdomain.PostEntryRequest) (*ledgerdomain.JournalEntry, error) {
	if !scope.Valid() {
		return nil, ledgerdomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	entry, err := s.lockDraft(ctx, tx, scope, req.ID)
	if err != nil {
		return nil, err
	}
	entry.Lines, err = s.repo.ListLines(ctx, tx, scope, entry.ID)
	if err != nil {
		return nil, err
	}

	totalDebit, totalCredit, err := ledgerdomain.ValidateLines(ledgerdomain.ToInputs(entry.Lines, false))
	if err != nil {
		return nil, err
	}
	if !totalDebit.Equal(entry.TotalDebit) || !totalCredit.Equal(entry.TotalCredit) {
		return nil, fmt.Errorf("%w: %s", ledgerdomain.ErrTotalsMismatch, entry.EntryNumber)
	}
	if _, err := s.accounts.ResolvePostable(ctx, tx, scope, accountIDsOf(entry.Lines)); err != nil {
		return nil, err
	}

	if err := s.applyLines(ctx, tx, scope, entry.Lines); err != nil {
		return nil, err
	}

	postedAt := s.clock.Now()
	if !req.PostingDate.IsZero() {
		postedAt = req.PostingDate.UTC()
	}
	entry.Status = ledgerdomain.EntryStatusPosted
	entry.PostedAt = &postedAt
	entry.PostedBy = actorPtr(ctx, req.PostedBy)
	entry.UpdatedAt = s.clock.Now()
	if err := s.transition(ctx, tx, entry, ledgerdomain.EntryStatusDraft); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, tx, "journal_entry.posted", entry, nil); err != nil {
		return nil, err
	}
	s.obsMetrics.RecordJournalEntry(ctx, "posted")
	return entry, nil
}

func (s *Service) ReverseEntry(ctx context.Context, req ledgerdomain.ReverseEntryRequest) (*ledgerdomain.JournalEntry, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, ledgerdomain.ErrInvalidScope
	}

	var reversal *ledgerdomain.JournalEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reversal, err = s.ReverseEntryTx(ctx, tx, scope, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("journal entry reversed",
		zap.String("entry_id", req.ID.String()),
		zap.String("reversal_id", reversal.ID.String()),
		zap.String("reversal_number", reversal.EntryNumber),
	)
	return reversal, nil
}

// ReverseEntryTx books a posted mirror of a posted entry and marks the
// original reversed. It returns the reversal entry.
func (s *Service) ReverseEntryTx(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, req ledgerdomain.ReverseEntryRequest) (*ledgerdomain.JournalEntry, error) {
	if !scope.Valid() {
		return nil, ledgerdomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	original, err := s.repo.FindByIDForUpdate(ctx, tx, scope, req.ID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ledgerdomain.ErrNotFound
	}
	switch {
	case original.IsReversal:
		return nil, fmt.Errorf("%w: %s", ledgerdomain.ErrReversalOfReversal, original.EntryNumber)
	case original.Status == ledgerdomain.EntryStatusReversed || original.ReversedByID != nil:
		return nil, fmt.Errorf("%w: %s", ledgerdomain.ErrAlreadyReversed, original.EntryNumber)
	case !original.Status.CanTransitionTo(ledgerdomain.EntryStatusReversed):
		return nil, fmt.Errorf("%w: %s is %s", ledgerdomain.ErrNotPosted, original.EntryNumber, original.Status)
	}

	lines, err := s.repo.ListLines(ctx, tx, scope, original.ID)
	if err != nil {
		return nil, err
	}

	number, err := s.reversalNumber(ctx, tx, scope, original.EntryNumber)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reversalDate := clock.Today(s.clock)
	if !req.ReversalDate.IsZero() {
		reversalDate = clock.Date(req.ReversalDate)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Reversal of " + original.EntryNumber
	}
	actor := actorPtr(ctx, req.ReversedBy)
	originalID := original.ID

	reversal := &ledgerdomain.JournalEntry{
		ID:           s.genID.Generate(),
		TenantID:     scope.TenantID,
		CompanyID:    scope.CompanyID,
		EntryNumber:  number,
		EntryDate:    reversalDate,
		Description:  description,
		Reference:    original.Reference,
		Status:       ledgerdomain.EntryStatusPosted,
		TotalDebit:   original.TotalCredit,
		TotalCredit:  original.TotalDebit,
		IsReversal:   true,
		ReversalOfID: &originalID,
		PostedAt:     &now,
		PostedBy:     actor,
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertEntry(ctx, tx, reversal); err != nil {
		return nil, err
	}
	reversal.Lines = s.buildLines(reversal, ledgerdomain.ToInputs(lines, true), now)
	if err := s.repo.InsertLines(ctx, tx, reversal.Lines); err != nil {
		return nil, err
	}

	// No ResolvePostable here: accounts deactivated since posting still
	// take the offsetting lines.
	if err := s.applyLines(ctx, tx, scope, reversal.Lines); err != nil {
		return nil, err
	}

	reversalID := reversal.ID
	original.Status = ledgerdomain.EntryStatusReversed
	original.ReversedByID = &reversalID
	original.ReversedAt = &now
	original.ReversedBy = actor
	original.UpdatedAt = now
	if err := s.transition(ctx, tx, original, ledgerdomain.EntryStatusPosted); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, tx, "journal_entry.reversed", original, map[string]any{
		"reversal_id":     reversal.ID.String(),
		"reversal_number": reversal.EntryNumber,
	}); err != nil {
		return nil, err
	}
	s.obsMetrics.RecordJournalEntry(ctx, "reversed")
	return reversal, nil
}

// reversalNumber returns <orig>-REV, or <orig>-REV-<n> from the reversal
// sequence when that number is taken.
func (s *Service) reversalNumber(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, original string) (string, error) {
	candidate := original + "-REV"
	for {
		existing, err := s.repo.FindByNumber(ctx, tx, scope, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		n, err := s.sequences.Next(ctx, tx, scope, sequence.JournalReversal)
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-REV-%d", original, n)
	}
}

// applyLines calls UpdateBalance once per line, ordered by account id so
// concurrent postings lock rows in the same order.
func (s *Service) applyLines(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, lines []ledgerdomain.JournalEntryLine) error {
	ordered := make([]ledgerdomain.JournalEntryLine, len(lines))
	copy(ordered, lines)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AccountID < ordered[j].AccountID
	})

	for _, line := range ordered {
		if _, err := s.accounts.UpdateBalance(ctx, tx, scope, line.AccountID, line.DebitAmount, line.CreditAmount); err != nil {
			return err
		}
	}
	return nil
}

func accountIDsOf(lines []ledgerdomain.JournalEntryLine) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.AccountID)
	}
	return ids
}
