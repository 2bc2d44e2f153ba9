package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
)

type AllocationInput struct {
	InvoiceID snowflake.ID    `validate:"required"`
	Amount    decimal.Decimal `validate:"-"`
}

type CreatePaymentRequest struct {
	// PaymentNumber is generated from the payment sequence when empty.
	PaymentNumber string          `validate:"max=64"`
	CustomerID    snowflake.ID    `validate:"required"`
	PaymentDate   time.Time       `validate:"required"`
	PaymentMethod PaymentMethod   `validate:"required,oneof=cash check bank_transfer card other"`
	Reference     string          `validate:"max=255"`
	Amount        decimal.Decimal `validate:"-"`
	Notes         string
	// DepositAccountID and ReceivableAccountID are given together. With
	// both set the receipt is journaled as debit deposit, credit receivable.
	DepositAccountID    *snowflake.ID     `validate:"-"`
	ReceivableAccountID *snowflake.ID     `validate:"-"`
	Allocations         []AllocationInput `validate:"dive"`
}

type AllocateRequest struct {
	PaymentID snowflake.ID `validate:"required"`
	// AllocationDate defaults to today.
	AllocationDate time.Time
	Allocations    []AllocationInput `validate:"dive"`
}

type ClearPaymentRequest struct {
	ID snowflake.ID `validate:"required"`
	// ClearedDate defaults to today.
	ClearedDate time.Time
}

type VoidPaymentRequest struct {
	ID       snowflake.ID `validate:"required"`
	Reason   string       `validate:"max=1024"`
	VoidedBy string
}

type VoidAllocationRequest struct {
	ID       snowflake.ID `validate:"required"`
	VoidedBy string
}

type ListPaymentRequest struct {
	pagination.Pagination
	Status     PaymentStatus
	CustomerID snowflake.ID
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type ListAllocationRequest struct {
	PaymentID     snowflake.ID
	InvoiceID     snowflake.ID
	IncludeVoided bool
}

type Service interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
	Allocate(ctx context.Context, req AllocateRequest) (*Payment, error)
	ClearPayment(ctx context.Context, req ClearPaymentRequest) (*Payment, error)
	VoidPayment(ctx context.Context, req VoidPaymentRequest) (*Payment, error)
	VoidAllocation(ctx context.Context, req VoidAllocationRequest) (*Payment, error)
	GetPayment(ctx context.Context, id snowflake.ID) (*Payment, error)
	ListPayments(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
	ListAllocations(ctx context.Context, req ListAllocationRequest) ([]PaymentAllocation, error)
}
