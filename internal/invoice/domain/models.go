// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/clock"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// lifecycleTransitions covers the explicit operations. Payment driven
// changes are derived by PaymentStatus.
var lifecycleTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:         {InvoiceStatusSent, InvoiceStatusVoid, InvoiceStatusCancelled},
	InvoiceStatusSent:          {InvoiceStatusSent, InvoiceStatusVoid, InvoiceStatusOverdue},
	InvoiceStatusPartiallyPaid: {InvoiceStatusOverdue},
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusVoid, InvoiceStatusCancelled:
		return true
	default:
		return false
	}
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range lifecycleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsPayments reports whether payments may be applied in this state.
func (s InvoiceStatus) AcceptsPayments() bool {
	return s != InvoiceStatusVoid && s != InvoiceStatusCancelled
}

// Invoice is a customer bill. Amounts are stored rounded to cents.
type Invoice struct {
	ID                 snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID           string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_scope_number,priority:1;index:ix_invoices_scope_status,priority:1" json:"tenant_id"`
	CompanyID          string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_scope_number,priority:2;index:ix_invoices_scope_status,priority:2" json:"company_id"`
	InvoiceNumber      string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_scope_number,priority:3" json:"invoice_number"`
	CustomerID         snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	InvoiceDate        time.Time       `gorm:"not null" json:"invoice_date"`
	DueDate            time.Time       `gorm:"not null" json:"due_date"`
	Status             InvoiceStatus   `gorm:"type:varchar(16);not null;index:ix_invoices_scope_status,priority:3" json:"status"`
	Subtotal           decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"subtotal"`
	TaxAmount          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"tax_amount"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"discount_amount"`
	ShippingAmount     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"shipping_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_amount"`
	PaidAmount         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_invoices_paid_amount,paid_amount >= 0 AND paid_amount <= total_amount" json:"paid_amount"`
	BalanceDue         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance_due"`
	Notes              string          `gorm:"type:text;not null;default:''" json:"notes,omitempty"`
	SentAt             *time.Time      `json:"sent_at,omitempty"`
	VoidedAt           *time.Time      `json:"voided_at,omitempty"`
	VoidReason         *string         `gorm:"type:text" json:"void_reason,omitempty"`
	CreatedBy          *string         `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	CreatedAt          time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null" json:"updated_at"`

	Lines []InvoiceLineItem `gorm:"-" json:"lines,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLineItem represents a line on an invoice.
type InvoiceLineItem struct {
	ID                 snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID           string          `gorm:"type:varchar(64);not null" json:"tenant_id"`
	CompanyID          string          `gorm:"type:varchar(64);not null" json:"company_id"`
	InvoiceID          snowflake.ID    `gorm:"not null;uniqueIndex:ux_invoice_line_items_invoice_line,priority:1" json:"invoice_id"`
	LineNumber         int             `gorm:"not null;uniqueIndex:ux_invoice_line_items_invoice_line,priority:2" json:"line_number"`
	Description        string          `gorm:"type:text;not null" json:"description"`
	AccountID          *snowflake.ID   `gorm:"index" json:"account_id,omitempty"`
	Quantity           decimal.Decimal `gorm:"type:numeric(20,4);not null;check:chk_invoice_line_items_quantity,quantity > 0" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:numeric(20,2);not null;check:chk_invoice_line_items_unit_price,unit_price >= 0" json:"unit_price"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"discount_amount"`
	TaxRateID          *snowflake.ID   `json:"tax_rate_id,omitempty"`
	TaxPercentage      decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"tax_percentage"`
	IsTaxable          bool            `gorm:"not null" json:"is_taxable"`
	TaxAmount          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"tax_amount"`
	LineSubtotal       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"line_subtotal"`
	LineTotal          decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"line_total"`
	CreatedAt          time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "invoice_line_items" }

// IsOverdue reports whether an issued invoice still has a balance after its
// due date.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	switch inv.Status {
	case InvoiceStatusPaid, InvoiceStatusVoid, InvoiceStatusCancelled, InvoiceStatusDraft:
		return false
	}
	return clock.Date(inv.DueDate).Before(clock.Date(now)) && inv.BalanceDue.IsPositive()
}

// PaymentStatus derives the status after the paid amount changed. An
// invoice whose payments were all reversed falls back to sent.
func PaymentStatus(paid, total decimal.Decimal) InvoiceStatus {
	switch {
	case paid.IsPositive() && paid.GreaterThanOrEqual(total):
		return InvoiceStatusPaid
	case paid.IsPositive():
		return InvoiceStatusPartiallyPaid
	default:
		return InvoiceStatusSent
	}
}
