package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/account/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"gorm.io/gorm"
)

const accountColumns = `id, tenant_id, company_id, code, name, description, type, is_header, is_active,
	is_cash_account, parent_id, debit_balance, credit_balance, current_balance, version, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, account *domain.Account) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.TenantID,
		account.CompanyID,
		account.Code,
		account.Name,
		account.Description,
		account.Type,
		account.IsHeader,
		account.IsActive,
		account.IsCashAccount,
		account.ParentID,
		account.DebitBalance,
		account.CreditBalance,
		account.CurrentBalance,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := conn.WithContext(ctx).Raw(
		`SELECT `+accountColumns+`
		 FROM accounts
		 WHERE tenant_id = ? AND company_id = ? AND id = ?`,
		scope.TenantID,
		scope.CompanyID,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*domain.Account, error) {
	var accounts []domain.Account
	err := db.ForUpdate(conn.WithContext(ctx)).
		Where("tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id).
		Limit(1).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (r *repo) FindByCode(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, code string) (*domain.Account, error) {
	var account domain.Account
	err := conn.WithContext(ctx).Raw(
		`SELECT `+accountColumns+`
		 FROM accounts
		 WHERE tenant_id = ? AND company_id = ? AND code = ?`,
		scope.TenantID,
		scope.CompanyID,
		code,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByIDs(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, ids []snowflake.ID) ([]domain.Account, error) {
	var accounts []domain.Account
	if len(ids) == 0 {
		return accounts, nil
	}
	err := conn.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ? AND id IN ?", scope.TenantID, scope.CompanyID, ids).
		Order("code asc").
		Find(&accounts).Error
	return accounts, err
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, filter domain.ListFilter) ([]domain.Account, error) {
	var accounts []domain.Account
	stmt := conn.WithContext(ctx).
		Model(&domain.Account{}).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID)
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsHeader != nil {
		stmt = stmt.Where("is_header = ?", *filter.IsHeader)
	}
	if filter.IsCash != nil {
		stmt = stmt.Where("is_cash_account = ?", *filter.IsCash)
	}
	if err := stmt.Order("code asc").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) CountChildren(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.Account{}).
		Where("tenant_id = ? AND company_id = ? AND parent_id = ?", scope.TenantID, scope.CompanyID, id).
		Count(&count).Error
	return count, err
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, account *domain.Account) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET name = ?, description = ?, is_header = ?, is_active = ?, is_cash_account = ?, parent_id = ?,
		     version = version + 1, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ?`,
		account.Name,
		account.Description,
		account.IsHeader,
		account.IsActive,
		account.IsCashAccount,
		account.ParentID,
		account.UpdatedAt,
		account.TenantID,
		account.CompanyID,
		account.ID,
	).Error
}

func (r *repo) UpdateBalances(ctx context.Context, conn *gorm.DB, account *domain.Account, expectedVersion int64) (int64, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET debit_balance = ?, credit_balance = ?, current_balance = ?, version = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ? AND version = ?`,
		account.DebitBalance,
		account.CreditBalance,
		account.CurrentBalance,
		account.Version,
		account.UpdatedAt,
		account.TenantID,
		account.CompanyID,
		account.ID,
		expectedVersion,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM accounts WHERE tenant_id = ? AND company_id = ? AND id = ?`,
		scope.TenantID,
		scope.CompanyID,
		id,
	).Error
}
