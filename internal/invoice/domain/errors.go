package domain

import "github.com/smallbiznis/bookkeeping/pkg/domainerr"

var (
	ErrInvalidScope      = domainerr.Validation("invalid_scope")
	ErrInvalidID         = domainerr.Validation("invalid_id")
	ErrInvalidQuantity   = domainerr.Validation("invalid_quantity")
	ErrInvalidUnitPrice  = domainerr.Validation("invalid_unit_price")
	ErrInvalidPercentage = domainerr.Validation("invalid_percentage")
	ErrInvalidDiscount   = domainerr.Validation("invalid_discount")
	ErrInvalidShipping   = domainerr.Validation("invalid_shipping_amount")
	ErrInvalidDueDate    = domainerr.Validation("due_date_before_invoice_date")
	ErrInvalidAmount     = domainerr.Validation("invalid_amount")
	ErrInvalidPageToken  = domainerr.Validation("invalid_page_token")

	ErrNotFound = domainerr.NotFound("invoice_not_found")

	ErrNoLines             = domainerr.Rule("invoice_requires_lines")
	ErrDuplicateNumber     = domainerr.Rule("duplicate_invoice_number")
	ErrNotDraft            = domainerr.Rule("invoice_not_draft")
	ErrInvalidTransition   = domainerr.Rule("invalid_invoice_transition")
	ErrHasPayments         = domainerr.Rule("invoice_has_payments")
	ErrNotPayable          = domainerr.Rule("invoice_not_payable")
	ErrOverpayment         = domainerr.Rule("payment_exceeds_balance_due")
	ErrReversalExceedsPaid = domainerr.Rule("reversal_exceeds_paid_amount")
	ErrTotalBelowPaid      = domainerr.Rule("total_below_paid_amount")

	ErrConcurrentUpdate = domainerr.Conflict("invoice_concurrent_update")
)
