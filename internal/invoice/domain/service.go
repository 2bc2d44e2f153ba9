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

type LineInput struct {
	Description string          `validate:"required,max=1024"`
	AccountID   *snowflake.ID   `validate:"-"`
	Quantity    decimal.Decimal `validate:"-"`
	UnitPrice   decimal.Decimal `validate:"-"`
	// DiscountPercentage takes precedence over DiscountAmount.
	DiscountPercentage decimal.Decimal `validate:"-"`
	DiscountAmount     decimal.Decimal `validate:"-"`
	IsTaxable          bool
	// TaxRateID takes precedence over TaxPercentage. With neither, taxable
	// lines use the company default rate.
	TaxRateID     *snowflake.ID    `validate:"-"`
	TaxPercentage *decimal.Decimal `validate:"-"`
}

type CreateInvoiceRequest struct {
	// InvoiceNumber is generated from the invoice sequence when empty.
	InvoiceNumber      string          `validate:"max=64"`
	CustomerID         snowflake.ID    `validate:"required"`
	InvoiceDate        time.Time       `validate:"required"`
	DueDate            time.Time       `validate:"required"`
	DiscountPercentage decimal.Decimal `validate:"-"`
	DiscountAmount     decimal.Decimal `validate:"-"`
	ShippingAmount     decimal.Decimal `validate:"-"`
	Notes              string
	Lines              []LineInput `validate:"dive"`
}

type UpdateInvoiceRequest struct {
	ID                 snowflake.ID     `validate:"required"`
	CustomerID         *snowflake.ID    `validate:"-"`
	InvoiceDate        *time.Time       `validate:"-"`
	DueDate            *time.Time       `validate:"-"`
	DiscountPercentage *decimal.Decimal `validate:"-"`
	DiscountAmount     *decimal.Decimal `validate:"-"`
	ShippingAmount     *decimal.Decimal `validate:"-"`
	Notes              *string
	// Lines replaces every line when non-nil.
	Lines []LineInput `validate:"omitempty,dive"`
}

type VoidInvoiceRequest struct {
	ID     snowflake.ID `validate:"required"`
	Reason string       `validate:"max=1024"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status     InvoiceStatus
	CustomerID snowflake.ID
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	UpdateInvoice(ctx context.Context, req UpdateInvoiceRequest) (*Invoice, error)
	SendInvoice(ctx context.Context, id snowflake.ID) (*Invoice, error)
	VoidInvoice(ctx context.Context, req VoidInvoiceRequest) (*Invoice, error)
	CancelInvoice(ctx context.Context, id snowflake.ID) (*Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
	GetInvoice(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
}

// PaymentApplier adjusts the paid amount of an invoice inside a transaction
// owned by the payment component.
type PaymentApplier interface {
	LockInvoice(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Invoice, error)
	ApplyPayment(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID, amount decimal.Decimal) (*Invoice, error)
	ReversePaymentApplication(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, id snowflake.ID, amount decimal.Decimal) (*Invoice, error)
}
