package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/customer/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, tenant_id, company_id, code, name, email, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.TenantID,
		customer.CompanyID,
		customer.Code,
		customer.Name,
		customer.Email,
		customer.Metadata,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*domain.Customer, error) {
	var customers []domain.Customer
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id).
		Limit(1).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, ids []snowflake.ID) ([]domain.Customer, error) {
	var customers []domain.Customer
	if len(ids) == 0 {
		return customers, nil
	}
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ? AND id IN ?", scope.TenantID, scope.CompanyID, ids).
		Order("code asc").
		Find(&customers).Error
	return customers, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter domain.ListCustomerFilter, page pagination.Pagination) ([]domain.Customer, error) {
	var customers []domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID)
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	stmt, err := page.Apply(stmt, "id")
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
