package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "draft"
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
	EntryStatusVoid     EntryStatus = "void"
)

var entryTransitions = map[EntryStatus][]EntryStatus{
	EntryStatusDraft:  {EntryStatusPosted, EntryStatusVoid},
	EntryStatusPosted: {EntryStatusReversed},
}

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusPosted, EntryStatusReversed, EntryStatusVoid:
		return true
	default:
		return false
	}
}

func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	for _, allowed := range entryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AffectsBalances reports whether the entry's lines have been applied to
// account balances. A reversed entry still counts; its reversal carries the
// offsetting lines.
func (s EntryStatus) AffectsBalances() bool {
	return s == EntryStatusPosted || s == EntryStatusReversed
}

// JournalEntry is the header of a balanced set of postings.
type JournalEntry struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID     string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_journal_entries_scope_number,priority:1;index:ix_journal_entries_scope_date,priority:1" json:"tenant_id"`
	CompanyID    string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_journal_entries_scope_number,priority:2;index:ix_journal_entries_scope_date,priority:2" json:"company_id"`
	EntryNumber  string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_journal_entries_scope_number,priority:3" json:"entry_number"`
	EntryDate    time.Time       `gorm:"not null;index:ix_journal_entries_scope_date,priority:3" json:"entry_date"`
	Description  string          `gorm:"type:text;not null;default:''" json:"description"`
	Reference    string          `gorm:"type:varchar(255);not null;default:''" json:"reference,omitempty"`
	Status       EntryStatus     `gorm:"type:varchar(16);not null" json:"status"`
	TotalDebit   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_journal_entries_balanced,total_debit = total_credit" json:"total_debit"`
	TotalCredit  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"total_credit"`
	IsReversal   bool            `gorm:"not null;default:false" json:"is_reversal"`
	ReversalOfID *snowflake.ID   `gorm:"index" json:"reversal_of_id,omitempty"`
	ReversedByID *snowflake.ID   `json:"reversed_by_id,omitempty"`
	PostedAt     *time.Time      `json:"posted_at,omitempty"`
	PostedBy     *string         `gorm:"type:varchar(64)" json:"posted_by,omitempty"`
	ReversedAt   *time.Time      `json:"reversed_at,omitempty"`
	ReversedBy   *string         `gorm:"type:varchar(64)" json:"reversed_by,omitempty"`
	CreatedBy    *string         `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`

	Lines []JournalEntryLine `gorm:"-" json:"lines,omitempty"`
}

func (JournalEntry) TableName() string { return "journal_entries" }

// JournalEntryLine posts one amount to one side of one account.
type JournalEntryLine struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID     string          `gorm:"type:varchar(64);not null" json:"tenant_id"`
	CompanyID    string          `gorm:"type:varchar(64);not null" json:"company_id"`
	EntryID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_journal_entry_lines_entry_line,priority:1" json:"entry_id"`
	LineNumber   int             `gorm:"not null;uniqueIndex:ux_journal_entry_lines_entry_line,priority:2" json:"line_number"`
	AccountID    snowflake.ID    `gorm:"not null;index" json:"account_id"`
	Description  string          `gorm:"type:text;not null;default:''" json:"description,omitempty"`
	DebitAmount  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_journal_entry_lines_one_side,(debit_amount > 0 AND credit_amount = 0) OR (credit_amount > 0 AND debit_amount = 0)" json:"debit_amount"`
	CreditAmount decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"credit_amount"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
}

func (JournalEntryLine) TableName() string { return "journal_entry_lines" }

// PostedLine is a line of an entry that affected balances, joined with its
// entry header.
type PostedLine struct {
	EntryID          snowflake.ID
	EntryNumber      string
	EntryDate        time.Time
	EntryDescription string
	LineNumber       int
	AccountID        snowflake.ID
	Description      string
	DebitAmount      decimal.Decimal
	CreditAmount     decimal.Decimal
}

// Net returns debit minus credit.
func (l PostedLine) Net() decimal.Decimal {
	return l.DebitAmount.Sub(l.CreditAmount)
}

// ValidateLines checks the double-entry rules and returns the column totals.
func ValidateLines(lines []LineInput) (decimal.Decimal, decimal.Decimal, error) {
	if len(lines) < 2 {
		return decimal.Zero, decimal.Zero, ErrTooFewLines
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for i, line := range lines {
		if line.AccountID == 0 {
			return decimal.Zero, decimal.Zero, ErrInvalidAccount
		}
		debit, credit := line.DebitAmount, line.CreditAmount
		if debit.IsNegative() || credit.IsNegative() {
			return decimal.Zero, decimal.Zero, ErrInvalidLineAmount
		}
		if debit.IsPositive() == credit.IsPositive() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: line %d", ErrOneSidedLine, i+1)
		}
		if !debit.Equal(debit.Round(2)) || !credit.Equal(credit.Round(2)) {
			return decimal.Zero, decimal.Zero, ErrInvalidLineAmount
		}
		totalDebit = totalDebit.Add(debit)
		totalCredit = totalCredit.Add(credit)
	}

	if !totalDebit.Equal(totalCredit) {
		return totalDebit, totalCredit, fmt.Errorf("%w: debit %s, credit %s", ErrUnbalancedEntry, totalDebit.StringFixed(2), totalCredit.StringFixed(2))
	}
	return totalDebit, totalCredit, nil
}

// ToInputs converts stored lines back into inputs, swapping sides when
// reverse is set.
func ToInputs(lines []JournalEntryLine, reverse bool) []LineInput {
	inputs := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		in := LineInput{
			AccountID:    line.AccountID,
			Description:  line.Description,
			DebitAmount:  line.DebitAmount,
			CreditAmount: line.CreditAmount,
		}
		if reverse {
			in.DebitAmount, in.CreditAmount = line.CreditAmount, line.DebitAmount
		}
		inputs = append(inputs, in)
	}
	return inputs
}
