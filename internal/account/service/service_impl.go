package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	auditdomain "github.com/smallbiznis/bookkeeping/internal/audit/domain"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	obsmetrics "github.com/smallbiznis/bookkeeping/internal/observability/metrics"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db"
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
	Repo       accountdomain.Repository
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       accountdomain.Repository
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("account.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

var (
	_ accountdomain.Service        = (*Service)(nil)
	_ accountdomain.PostingService = (*Service)(nil)
)

func (s *Service) CreateAccount(ctx context.Context, req accountdomain.CreateAccountRequest) (*accountdomain.Account, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, accountdomain.ErrInvalidScope
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, accountdomain.ErrInvalidAccountType
	}

	if req.ParentID != nil {
		if err := s.validateParent(ctx, s.db, scope, 0, *req.ParentID); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.FindByCode(ctx, s.db, scope, req.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", accountdomain.ErrDuplicateAccountCode, req.Code)
	}

	now := s.clock.Now()
	account := &accountdomain.Account{
		ID:             s.genID.Generate(),
		TenantID:       scope.TenantID,
		CompanyID:      scope.CompanyID,
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		Type:           req.Type,
		IsHeader:       req.IsHeader,
		IsActive:       true,
		IsCashAccount:  req.IsCashAccount,
		ParentID:       req.ParentID,
		DebitBalance:   decimal.Zero,
		CreditBalance:  decimal.Zero,
		CurrentBalance: decimal.Zero,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, account); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("%w: %s", accountdomain.ErrDuplicateAccountCode, req.Code)
			}
			return err
		}
		return s.audit(ctx, tx, "account.created", account, map[string]any{
			"code": account.Code,
			"type": string(account.Type),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account created", zap.String("account_id", account.ID.String()), zap.String("code", account.Code))
	return account, nil
}

func (s *Service) UpdateAccount(ctx context.Context, req accountdomain.UpdateAccountRequest) (*accountdomain.Account, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, accountdomain.ErrInvalidScope
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var updated *accountdomain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByIDForUpdate(ctx, tx, scope, req.ID)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrNotFound
		}

		if req.Name != nil {
			account.Name = *req.Name
		}
		if req.Description != nil {
			account.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsActive != nil {
			account.IsActive = *req.IsActive
		}
		if req.IsCashAccount != nil {
			account.IsCashAccount = *req.IsCashAccount
		}
		if req.IsHeader != nil && *req.IsHeader != account.IsHeader {
			if err := s.checkHeaderChange(ctx, tx, scope, account, *req.IsHeader); err != nil {
				return err
			}
			account.IsHeader = *req.IsHeader
		}
		switch {
		case req.ClearParent:
			account.ParentID = nil
		case req.ParentID != nil:
			if err := s.validateParent(ctx, tx, scope, account.ID, *req.ParentID); err != nil {
				return err
			}
			parentID := *req.ParentID
			account.ParentID = &parentID
		}

		account.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, account); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, "account.updated", account, nil); err != nil {
			return err
		}

		updated, err = s.repo.FindByID(ctx, tx, scope, account.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id snowflake.ID) error {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return accountdomain.ErrInvalidScope
	}
	if id == 0 {
		return accountdomain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByIDForUpdate(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrNotFound
		}

		children, err := s.repo.CountChildren(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %d children", accountdomain.ErrHasChildren, children)
		}
		if !account.CurrentBalance.IsZero() {
			return fmt.Errorf("%w: %s", accountdomain.ErrNonZeroBalance, account.CurrentBalance.StringFixed(2))
		}

		if err := s.repo.Delete(ctx, tx, scope, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, "account.deleted", account, map[string]any{"code": account.Code})
	})
}

func (s *Service) GetAccount(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, accountdomain.ErrInvalidScope
	}
	if id == 0 {
		return nil, accountdomain.ErrInvalidID
	}
	account, err := s.repo.FindByID(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrNotFound
	}
	return account, nil
}

func (s *Service) GetAccountByCode(ctx context.Context, code string) (*accountdomain.Account, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, accountdomain.ErrInvalidScope
	}
	account, err := s.repo.FindByCode(ctx, s.db, scope, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrNotFound
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, req accountdomain.ListAccountRequest) ([]accountdomain.Account, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, accountdomain.ErrInvalidScope
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, accountdomain.ErrInvalidAccountType
	}
	return s.repo.List(ctx, s.db, scope, accountdomain.ListFilter{
		Type:     req.Type,
		IsActive: req.IsActive,
		IsHeader: req.IsHeader,
	})
}

func (s *Service) BuildTree(ctx context.Context) ([]*accountdomain.TreeNode, error) {
	accounts, err := s.ListAccounts(ctx, accountdomain.ListAccountRequest{})
	if err != nil {
		return nil, err
	}
	return accountdomain.BuildTree(accounts), nil
}

// validateParent checks that parentID names a header account in scope and
// that attaching accountID beneath it keeps the chart acyclic. accountID is
// zero for accounts that do not exist yet.
func (s *Service) validateParent(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, accountID, parentID snowflake.ID) error {
	if parentID == accountID {
		return accountdomain.ErrParentCycle
	}
	parent, err := s.repo.FindByID(ctx, conn, scope, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("%w: %s", accountdomain.ErrParentNotFound, parentID)
	}
	if !parent.IsHeader {
		return fmt.Errorf("%w: %s", accountdomain.ErrParentNotHeader, parent.Code)
	}
	if accountID == 0 {
		return nil
	}

	seen := map[snowflake.ID]bool{parent.ID: true}
	for cursor := parent.ParentID; cursor != nil; {
		if *cursor == accountID || seen[*cursor] {
			return accountdomain.ErrParentCycle
		}
		seen[*cursor] = true
		ancestor, err := s.repo.FindByID(ctx, conn, scope, *cursor)
		if err != nil {
			return err
		}
		if ancestor == nil {
			break
		}
		cursor = ancestor.ParentID
	}
	return nil
}

func (s *Service) checkHeaderChange(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, account *accountdomain.Account, toHeader bool) error {
	if toHeader {
		if !account.DebitBalance.IsZero() || !account.CreditBalance.IsZero() {
			return fmt.Errorf("%w: %s", accountdomain.ErrNonZeroBalance, account.Code)
		}
		return nil
	}
	children, err := s.repo.CountChildren(ctx, conn, scope, account.ID)
	if err != nil {
		return err
	}
	if children > 0 {
		return fmt.Errorf("%w: %d children", accountdomain.ErrHasChildren, children)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, account *accountdomain.Account, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	return s.auditSvc.AuditLogTx(ctx, tx, action, "account", account.ID.String(), metadata)
}
