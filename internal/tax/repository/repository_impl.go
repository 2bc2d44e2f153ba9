package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	taxdomain "github.com/smallbiznis/bookkeeping/internal/tax/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() taxdomain.Repository {
	return &repository{}
}

const taxRateColumns = `id, tenant_id, company_id, code, name, description, rate_percentage,
	effective_from, effective_to, is_active, is_default, created_at, updated_at`

func (r *repository) Insert(ctx context.Context, db *gorm.DB, rate *taxdomain.TaxRate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tax_rates (`+taxRateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.TenantID,
		rate.CompanyID,
		rate.Code,
		rate.Name,
		rate.Description,
		rate.RatePercentage,
		rate.EffectiveFrom,
		rate.EffectiveTo,
		rate.IsActive,
		rate.IsDefault,
		rate.CreatedAt,
		rate.UpdatedAt,
	).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*taxdomain.TaxRate, error) {
	return r.findOne(ctx, db, `WHERE tenant_id = ? AND company_id = ? AND id = ?`, scope.TenantID, scope.CompanyID, id)
}

func (r *repository) FindByCode(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, code string) (*taxdomain.TaxRate, error) {
	return r.findOne(ctx, db, `WHERE tenant_id = ? AND company_id = ? AND code = ?`, scope.TenantID, scope.CompanyID, code)
}

func (r *repository) FindDefault(ctx context.Context, db *gorm.DB, scope orgcontext.Scope) (*taxdomain.TaxRate, error) {
	return r.findOne(ctx, db,
		`WHERE tenant_id = ? AND company_id = ? AND is_default = ? ORDER BY id ASC`,
		scope.TenantID, scope.CompanyID, true,
	)
}

func (r *repository) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*taxdomain.TaxRate, error) {
	var rate taxdomain.TaxRate
	err := db.WithContext(ctx).Raw(
		`SELECT `+taxRateColumns+` FROM tax_rates `+where+` LIMIT 1`,
		args...,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter taxdomain.ListFilter) ([]taxdomain.TaxRate, error) {
	var items []taxdomain.TaxRate
	stmt := db.WithContext(ctx).
		Model(&taxdomain.TaxRate{}).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID)

	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsDefault != nil {
		stmt = stmt.Where("is_default = ?", *filter.IsDefault)
	}

	if err := stmt.Order("code ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, rate *taxdomain.TaxRate) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tax_rates
		 SET name = ?, description = ?, rate_percentage = ?, effective_from = ?, effective_to = ?,
		     is_active = ?, is_default = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ?`,
		rate.Name,
		rate.Description,
		rate.RatePercentage,
		rate.EffectiveFrom,
		rate.EffectiveTo,
		rate.IsActive,
		rate.IsDefault,
		rate.UpdatedAt,
		rate.TenantID,
		rate.CompanyID,
		rate.ID,
	).Error
}

func (r *repository) ClearDefault(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, exceptID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tax_rates SET is_default = ?
		 WHERE tenant_id = ? AND company_id = ? AND is_default = ? AND id <> ?`,
		false,
		scope.TenantID,
		scope.CompanyID,
		true,
		exceptID,
	).Error
}
