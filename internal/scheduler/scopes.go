package scheduler

import (
	"context"
	"time"

	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
)

// overdueScopes returns every tenant/company that holds an issued invoice
// with an open balance due before asOf.
func (s *Scheduler) overdueScopes(ctx context.Context, asOf time.Time) ([]orgcontext.Scope, error) {
	var scopes []orgcontext.Scope
	err := s.db.WithContext(ctx).
		Table("invoices").
		Distinct("tenant_id", "company_id").
		Where("status IN ?", []invoicedomain.InvoiceStatus{
			invoicedomain.InvoiceStatusSent,
			invoicedomain.InvoiceStatusPartiallyPaid,
		}).
		Where("due_date < ?", asOf).
		Where("balance_due > 0").
		Order("tenant_id ASC").
		Order("company_id ASC").
		Scan(&scopes).Error
	if err != nil {
		return nil, err
	}
	return scopes, nil
}

// ledgerScopes returns every tenant/company with a chart of accounts.
func (s *Scheduler) ledgerScopes(ctx context.Context) ([]orgcontext.Scope, error) {
	var scopes []orgcontext.Scope
	err := s.db.WithContext(ctx).
		Table("accounts").
		Distinct("tenant_id", "company_id").
		Order("tenant_id ASC").
		Order("company_id ASC").
		Scan(&scopes).Error
	if err != nil {
		return nil, err
	}
	return scopes, nil
}
