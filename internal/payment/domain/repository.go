package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status     PaymentStatus
	CustomerID snowflake.ID
}

type AllocationFilter struct {
	PaymentID     snowflake.ID
	InvoiceID     snowflake.ID
	IncludeVoided bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Payment, error)
	FindByNumber(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, number string) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter ListFilter, page pagination.Pagination) ([]Payment, error)
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error

	InsertAllocation(ctx context.Context, db *gorm.DB, allocation *PaymentAllocation) error
	FindAllocationForUpdate(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*PaymentAllocation, error)
	ListAllocations(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter AllocationFilter) ([]PaymentAllocation, error)
	// VoidAllocation flips an active allocation and reports the rows changed.
	VoidAllocation(ctx context.Context, db *gorm.DB, allocation *PaymentAllocation) (int64, error)
	SumActiveAllocations(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, paymentID snowflake.ID) (decimal.Decimal, error)
}
