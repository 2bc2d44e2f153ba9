package domain

import "github.com/smallbiznis/bookkeeping/pkg/domainerr"

var (
	ErrInvalidScope       = domainerr.Validation("invalid_scope")
	ErrInvalidID          = domainerr.Validation("invalid_id")
	ErrInvalidAccountType = domainerr.Validation("invalid_account_type")
	ErrInvalidAmount      = domainerr.Validation("invalid_amount")

	ErrNotFound             = domainerr.NotFound("account_not_found")
	ErrParentNotFound       = domainerr.Rule("parent_account_not_found")
	ErrDuplicateAccountCode = domainerr.Rule("duplicate_account_code")
	ErrParentNotHeader      = domainerr.Rule("parent_not_header")
	ErrParentCycle          = domainerr.Rule("parent_cycle")
	ErrHasChildren          = domainerr.Rule("account_has_children")
	ErrNonZeroBalance       = domainerr.Rule("account_has_balance")
	ErrAccountInactive      = domainerr.Rule("account_inactive")
	ErrHeaderAccount        = domainerr.Rule("header_account_not_postable")
	ErrConcurrentUpdate     = domainerr.Conflict("account_concurrent_update")
)
