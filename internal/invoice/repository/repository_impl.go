package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, invoice *invoicedomain.Invoice) error {
	return conn.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return r.findOne(conn.WithContext(ctx), "tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return r.findOne(db.ForUpdate(conn.WithContext(ctx)), "tenant_id = ? AND company_id = ? AND id = ?", scope.TenantID, scope.CompanyID, id)
}

func (r *repo) FindByNumber(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, number string) (*invoicedomain.Invoice, error) {
	return r.findOne(conn.WithContext(ctx), "tenant_id = ? AND company_id = ? AND invoice_number = ?", scope.TenantID, scope.CompanyID, number)
}

func (r *repo) findOne(stmt *gorm.DB, query string, args ...any) (*invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	if err := stmt.Where(query, args...).Limit(1).Find(&invoices).Error; err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, filter invoicedomain.ListFilter, page pagination.Pagination) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	stmt := conn.WithContext(ctx).Model(&invoicedomain.Invoice{}).
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
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListOverdueCandidates(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope, before time.Time) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := conn.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID).
		Where("status IN ?", []invoicedomain.InvoiceStatus{invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusPartiallyPaid}).
		Where("due_date < ?", before).
		Order("due_date ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListReceivables(ctx context.Context, conn *gorm.DB, scope orgcontext.Scope) ([]invoicedomain.Invoice, error) {
	var invoices []invoicedomain.Invoice
	err := conn.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID).
		Where("status IN ?", []invoicedomain.InvoiceStatus{
			invoicedomain.InvoiceStatusSent,
			invoicedomain.InvoiceStatusPartiallyPaid,
			invoicedomain.InvoiceStatusOverdue,
		}).
		Order("customer_id ASC").
		Order("due_date ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, invoice *invoicedomain.Invoice) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET customer_id = ?, invoice_date = ?, due_date = ?, status = ?, subtotal = ?, tax_amount = ?,
		     discount_percentage = ?, discount_amount = ?, shipping_amount = ?, total_amount = ?,
		     balance_due = ?, notes = ?, sent_at = ?, voided_at = ?, void_reason = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ?`,
		invoice.CustomerID,
		invoice.InvoiceDate,
		invoice.DueDate,
		invoice.Status,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.DiscountPercentage,
		invoice.DiscountAmount,
		invoice.ShippingAmount,
		invoice.TotalAmount,
		invoice.BalanceDue,
		invoice.Notes,
		invoice.SentAt,
		invoice.VoidedAt,
		invoice.VoidReason,
		invoice.UpdatedAt,
		invoice.TenantID,
		invoice.CompanyID,
		invoice.ID,
	).Error
}

func (r *repo) UpdatePayment(ctx context.Context, conn *gorm.DB, invoice *invoicedomain.Invoice, expectedPaid decimal.Decimal) (int64, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET paid_amount = ?, balance_due = ?, status = ?, updated_at = ?
		 WHERE tenant_id = ? AND company_id = ? AND id = ? AND paid_amount = ?`,
		invoice.PaidAmount,
		invoice.BalanceDue,
		invoice.Status,
		invoice.UpdatedAt,
		invoice.TenantID,
		invoice.CompanyID,
		invoice.ID,
		expectedPaid,
	)
	return result.RowsAffected, result.Error
}
