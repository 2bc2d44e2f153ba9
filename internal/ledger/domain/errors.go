package domain

import "github.com/smallbiznis/bookkeeping/pkg/domainerr"

var (
	ErrInvalidScope      = domainerr.Validation("invalid_scope")
	ErrInvalidID         = domainerr.Validation("invalid_id")
	ErrInvalidAccount    = domainerr.Validation("invalid_line_account")
	ErrInvalidLineAmount = domainerr.Validation("invalid_line_amount")
	ErrInvalidDateRange  = domainerr.Validation("invalid_date_range")
	ErrInvalidPageToken  = domainerr.Validation("invalid_page_token")

	ErrNotFound = domainerr.NotFound("journal_entry_not_found")

	ErrTooFewLines          = domainerr.Rule("entry_requires_two_lines")
	ErrOneSidedLine         = domainerr.Rule("line_must_be_one_sided")
	ErrUnbalancedEntry      = domainerr.Rule("unbalanced_entry")
	ErrDuplicateEntryNumber = domainerr.Rule("duplicate_entry_number")
	ErrNotDraft             = domainerr.Rule("entry_not_draft")
	ErrNotPosted            = domainerr.Rule("entry_not_posted")
	ErrAlreadyReversed      = domainerr.Rule("entry_already_reversed")
	ErrReversalOfReversal   = domainerr.Rule("cannot_reverse_reversal")
	ErrTotalsMismatch       = domainerr.Rule("entry_totals_mismatch")

	ErrConcurrentUpdate = domainerr.Conflict("entry_concurrent_update")
)
