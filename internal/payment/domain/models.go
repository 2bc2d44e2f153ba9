// Package domain contains persistence models for received payments and
// their allocations to invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending            PaymentStatus = "pending"
	PaymentStatusCleared            PaymentStatus = "cleared"
	PaymentStatusPartiallyAllocated PaymentStatus = "partially_allocated"
	PaymentStatusAllocated          PaymentStatus = "allocated"
	PaymentStatusVoided             PaymentStatus = "voided"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCleared, PaymentStatusPartiallyAllocated,
		PaymentStatusAllocated, PaymentStatusVoided:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodOther        PaymentMethod = "other"
)

type Payment struct {
	ID                  snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID            string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_scope_number,priority:1;index:ix_payments_scope_customer,priority:1" json:"tenant_id"`
	CompanyID           string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_scope_number,priority:2;index:ix_payments_scope_customer,priority:2" json:"company_id"`
	PaymentNumber       string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_scope_number,priority:3" json:"payment_number"`
	CustomerID          snowflake.ID    `gorm:"not null;index:ix_payments_scope_customer,priority:3" json:"customer_id"`
	PaymentDate         time.Time       `gorm:"not null" json:"payment_date"`
	PaymentMethod       PaymentMethod   `gorm:"type:varchar(32);not null" json:"payment_method"`
	Reference           string          `gorm:"type:varchar(255);not null;default:''" json:"reference,omitempty"`
	PaymentAmount       decimal.Decimal `gorm:"type:numeric(20,2);not null;check:chk_payments_amount,payment_amount > 0" json:"payment_amount"`
	AllocatedAmount     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_payments_allocated,allocated_amount >= 0 AND allocated_amount <= payment_amount" json:"allocated_amount"`
	UnallocatedAmount   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_payments_unallocated,unallocated_amount >= 0" json:"unallocated_amount"`
	Status              PaymentStatus   `gorm:"type:varchar(24);not null" json:"status"`
	IsCleared           bool            `gorm:"not null" json:"is_cleared"`
	ClearedDate         *time.Time      `json:"cleared_date,omitempty"`
	IsVoided            bool            `gorm:"not null" json:"is_voided"`
	VoidedAt            *time.Time      `json:"voided_at,omitempty"`
	VoidedBy            *string         `gorm:"type:varchar(64)" json:"voided_by,omitempty"`
	VoidReason          *string         `gorm:"type:text" json:"void_reason,omitempty"`
	DepositAccountID    *snowflake.ID   `json:"deposit_account_id,omitempty"`
	ReceivableAccountID *snowflake.ID   `json:"receivable_account_id,omitempty"`
	JournalEntryID      *snowflake.ID   `json:"journal_entry_id,omitempty"`
	Notes               string          `gorm:"type:text;not null;default:''" json:"notes,omitempty"`
	CreatedBy           *string         `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`

	Allocations []PaymentAllocation `gorm:"-" json:"allocations,omitempty"`
}

func (Payment) TableName() string { return "payments" }

type PaymentAllocation struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID         string          `gorm:"type:varchar(64);not null" json:"tenant_id"`
	CompanyID        string          `gorm:"type:varchar(64);not null" json:"company_id"`
	PaymentID        snowflake.ID    `gorm:"not null;index" json:"payment_id"`
	InvoiceID        snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	AllocationAmount decimal.Decimal `gorm:"type:numeric(20,2);not null;check:chk_payment_allocations_amount,allocation_amount > 0" json:"allocation_amount"`
	AllocationDate   time.Time       `gorm:"not null" json:"allocation_date"`
	IsVoided         bool            `gorm:"not null" json:"is_voided"`
	VoidedAt         *time.Time      `json:"voided_at,omitempty"`
	VoidedBy         *string         `gorm:"type:varchar(64)" json:"voided_by,omitempty"`
	CreatedBy        *string         `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
}

func (PaymentAllocation) TableName() string { return "payment_allocations" }

// DeriveStatus computes the status from the voided flag, the allocated
// amount and the cleared flag. Allocation state wins over cleared.
func DeriveStatus(p *Payment) PaymentStatus {
	switch {
	case p.IsVoided:
		return PaymentStatusVoided
	case p.AllocatedAmount.IsPositive() && p.AllocatedAmount.GreaterThanOrEqual(p.PaymentAmount):
		return PaymentStatusAllocated
	case p.AllocatedAmount.IsPositive():
		return PaymentStatusPartiallyAllocated
	case p.IsCleared:
		return PaymentStatusCleared
	default:
		return PaymentStatusPending
	}
}

// Recompute sets the allocation totals from the sum of active allocations.
func (p *Payment) Recompute(allocated decimal.Decimal) {
	p.AllocatedAmount = allocated
	p.UnallocatedAmount = p.PaymentAmount.Sub(allocated)
	p.Status = DeriveStatus(p)
}
