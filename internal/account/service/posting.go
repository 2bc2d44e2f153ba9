package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) ResolvePostable(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, ids []snowflake.ID) (map[snowflake.ID]*accountdomain.Account, error) {
	unique := make([]snowflake.ID, 0, len(ids))
	seen := make(map[snowflake.ID]bool, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, accountdomain.ErrInvalidID
		}
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	accounts, err := s.repo.FindByIDs(ctx, tx, scope, unique)
	if err != nil {
		return nil, err
	}

	byID := make(map[snowflake.ID]*accountdomain.Account, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}
	for _, id := range unique {
		account, ok := byID[id]
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: %s", accountdomain.ErrNotFound, id)
		case !account.IsActive:
			return nil, fmt.Errorf("%w: %s", accountdomain.ErrAccountInactive, account.Code)
		case account.IsHeader:
			return nil, fmt.Errorf("%w: %s", accountdomain.ErrHeaderAccount, account.Code)
		}
	}
	return byID, nil
}

// UpdateBalance locks the account row, adds the posting amounts and writes
// the result guarded by the row version. A lost race surfaces as
// ErrConcurrentUpdate and the caller's transaction rolls back.
func (s *Service) UpdateBalance(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, accountID snowflake.ID, debit, credit decimal.Decimal) (*accountdomain.Account, error) {
	if debit.IsNegative() || credit.IsNegative() {
		return nil, accountdomain.ErrInvalidAmount
	}

	account, err := s.repo.FindByIDForUpdate(ctx, tx, scope, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", accountdomain.ErrNotFound, accountID)
	}
	if account.IsHeader {
		return nil, fmt.Errorf("%w: %s", accountdomain.ErrHeaderAccount, account.Code)
	}

	expected := account.Version
	account.ApplyPosting(debit, credit)
	account.Version = expected + 1
	account.UpdatedAt = s.clock.Now()

	rows, err := s.repo.UpdateBalances(ctx, tx, account, expected)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		s.obsMetrics.RecordBalanceConflict(ctx, string(account.Type))
		s.log.Warn("account balance version conflict",
			zap.String("account_id", accountID.String()),
			zap.Int64("expected_version", expected),
		)
		return nil, fmt.Errorf("%w: %s", accountdomain.ErrConcurrentUpdate, account.Code)
	}
	return account, nil
}
