package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/bookkeeping/internal/payment/domain"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, payment *paymentdomain.Payment) error {
	return conn.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*paymentdomain.Payment, error) {
	return r.findOne(conn.WithContext(ctx), "tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*paymentdomain.Payment, error) {
	return r.findOne(db.ForUpdate(conn.WithContext(ctx)), "tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id)
}

func (r *repo) FindByNumber(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, number string) (*paymentdomain.Payment, error) {
	return r.findOne(conn.WithContext(ctx), "tenant_id = ? AND company_id = ? AND payment_number = ?", scope.TenantID, scope.CompanyID, number)
}

func (r *repo) findOne(stmt *gorm.DB, query string, args ...any) (*paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	if err := stmt.Where(query, args...).Limit(1).Find(&payments).Error; err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return &payments[0], nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, filter paymentdomain.ListFilter, page pagination.Pagination) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	stmt := conn.WithContext(ctx).Model(&paymentdomain.Payment{}).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}

	stmt, err := page.Apply(stmt, "id")
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, payment *paymentdomain.Payment) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE payments
		 SET allocated_amount = ?, unallocated_amount = ?, status = ?, is_cleared = ?, cleared_date = ?,
		     is_voided = ?, voided_at = ?, voided_by = ?, void_reason = ?, journal_entry_id = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ?`,
		payment.AllocatedAmount,
		payment.UnallocatedAmount,
		payment.Status,
		payment.IsCleared,
		payment.ClearedDate,
		payment.IsVoided,
		payment.VoidedAt,
		payment.VoidedBy,
		payment.VoidReason,
		payment.JournalEntryID,
		payment.UpdatedAt,
		payment.TenantID,
		payment.CompanyID,
		payment.ID,
	).Error
}

func (r *repo) InsertAllocation(ctx context.Context, conn *gorm.DB, allocation *paymentdomain.PaymentAllocation) error {
	return conn.WithContext(ctx).Create(allocation).Error
}

func (r *repo) FindAllocationForUpdate(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*paymentdomain.PaymentAllocation, error) {
	var allocations []paymentdomain.PaymentAllocation
	err := db.ForUpdate(conn.WithContext(ctx)).
		Where("tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id).
		Limit(1).
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, nil
	}
	return &allocations[0], nil
}

func (r *repo) ListAllocations(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, filter paymentdomain.AllocationFilter) ([]paymentdomain.PaymentAllocation, error) {
	var allocations []paymentdomain.PaymentAllocation
	stmt := conn.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID)
	if filter.PaymentID != 0 {
		stmt = stmt.Where("payment_id = ?", filter.PaymentID)
	}
	if filter.InvoiceID != 0 {
		stmt = stmt.Where("invoice_id = ?", filter.InvoiceID)
	}
	if !filter.IncludeVoided {
		stmt = stmt.Where("is_voided = ?", false)
	}
	if err := stmt.Order("allocation_date ASC, id ASC").Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repo) VoidAllocation(ctx context.Context, conn *gorm.DB, allocation *paymentdomain.PaymentAllocation) (int64, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE payment_allocations
		 SET is_voided = ?, voided_at = ?, voided_by = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ? AND is_voided = ?`,
		true,
		allocation.VoidedAt,
		allocation.VoidedBy,
		allocation.TenantID,
		allocation.CompanyID,
		allocation.ID,
		false,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SumActiveAllocations(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, paymentID snowflake.ID) (decimal.Decimal, error) {
	var allocations []paymentdomain.PaymentAllocation
	err := conn.WithContext(ctx).
		Select("allocation_amount").
		Where("tenant_id = ? AND company_id = ? AND payment_id = ? AND is_voided = ?", scope.TenantID, scope.CompanyID, paymentID, false).
		Find(&allocations).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.AllocationAmount)
	}
	return total, nil
}
