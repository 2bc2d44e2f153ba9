package domain

import "github.com/smallbiznis/bookkeeping/pkg/domainerr"

var (
	ErrInvalidScope = domainerr.Validation("invalid_scope")
	ErrInvalidID    = domainerr.Validation("invalid_id")
	ErrInvalidRate  = domainerr.Validation("invalid_tax_rate")
	ErrInvalidRange = domainerr.Validation("invalid_effective_range")

	ErrNotFound          = domainerr.NotFound("tax_rate_not_found")
	ErrDuplicateCode     = domainerr.Rule("duplicate_tax_code")
	ErrTaxRateNotValid   = domainerr.Rule("tax_rate_not_valid")
	ErrDefaultNotAllowed = domainerr.Rule("inactive_tax_rate_cannot_be_default")
)
