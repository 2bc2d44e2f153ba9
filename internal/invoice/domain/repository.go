package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status     InvoiceStatus
	CustomerID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Invoice, error)
	FindByNumber(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, number string) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter ListFilter, page pagination.Pagination) ([]Invoice, error)
	// ListOverdueCandidates returns issued invoices with a balance whose due
	// date is before the given day.
	ListOverdueCandidates(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, before time.Time) ([]Invoice, error)
	// ListReceivables returns invoices with an open balance in a collectable
	// status.
	ListReceivables(ctx context.Context, db *gorm.DB, scope orgcontext.Scope) ([]Invoice, error)
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// UpdatePayment writes the paid amount and derived columns when the stored
	// paid amount still equals expectedPaid.
	UpdatePayment(ctx context.Context, db *gorm.DB, invoice *Invoice, expectedPaid decimal.Decimal) (int64, error)
}
