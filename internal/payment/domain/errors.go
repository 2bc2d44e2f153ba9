package domain

import "github.com/smallbiznis/bookkeeping/pkg/domainerr"

var (
	ErrInvalidScope       = domainerr.Validation("invalid_scope")
	ErrInvalidID          = domainerr.Validation("invalid_id")
	ErrInvalidAmount      = domainerr.Validation("invalid_payment_amount")
	ErrIncompleteAccounts = domainerr.Validation("incomplete_payment_accounts")
	ErrNoAllocations      = domainerr.Validation("no_allocations")
	ErrInvalidPageToken   = domainerr.Validation("invalid_page_token")

	ErrNotFound           = domainerr.NotFound("payment_not_found")
	ErrAllocationNotFound = domainerr.NotFound("payment_allocation_not_found")

	ErrDuplicateNumber     = domainerr.Rule("duplicate_payment_number")
	ErrPaymentVoided       = domainerr.Rule("payment_voided")
	ErrAlreadyCleared      = domainerr.Rule("payment_already_cleared")
	ErrHasAllocations      = domainerr.Rule("payment_has_allocations")
	ErrDuplicateAllocation = domainerr.Rule("duplicate_allocation")
	ErrCustomerMismatch    = domainerr.Rule("allocation_customer_mismatch")
	ErrInvoiceNotPayable   = domainerr.Rule("invoice_not_payable")
	ErrNoBalanceDue        = domainerr.Rule("invoice_no_balance_due")
	ErrExceedsBalanceDue   = domainerr.Rule("allocation_exceeds_balance_due")
	ErrExceedsUnallocated  = domainerr.Rule("allocation_exceeds_unallocated")
	ErrAllocationVoided    = domainerr.Rule("allocation_already_voided")
	ErrConcurrentUpdate    = domainerr.Conflict("payment_concurrent_update")
)
