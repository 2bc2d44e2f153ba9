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
	AccountID    snowflake.ID    `validate:"required"`
	Description  string          `validate:"max=1024"`
	DebitAmount  decimal.Decimal `validate:"-"`
	CreditAmount decimal.Decimal `validate:"-"`
}

type CreateEntryRequest struct {
	// EntryNumber is generated from the journal sequence when empty.
	EntryNumber string      `validate:"max=64"`
	EntryDate   time.Time   `validate:"required"`
	Description string      `validate:"max=1024"`
	Reference   string      `validate:"max=255"`
	Lines       []LineInput `validate:"dive"`
}

type UpdateEntryRequest struct {
	ID          snowflake.ID `validate:"required"`
	EntryDate   *time.Time   `validate:"-"`
	Description *string      `validate:"omitempty,max=1024"`
	Reference   *string      `validate:"omitempty,max=255"`
	// Lines replaces every line when non-nil.
	Lines []LineInput `validate:"omitempty,dive"`
}

type PostEntryRequest struct {
	ID snowflake.ID `validate:"required"`
	// PostingDate defaults to today.
	PostingDate time.Time
	PostedBy    string
}

type ReverseEntryRequest struct {
	ID snowflake.ID `validate:"required"`
	// ReversalDate defaults to today.
	ReversalDate time.Time
	Description  string `validate:"max=1024"`
	ReversedBy   string
}

type ListEntryRequest struct {
	pagination.Pagination
	Status EntryStatus
	From   *time.Time
	To     *time.Time
}

type ListEntryResponse struct {
	Entries  []JournalEntry      `json:"entries"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type AccountTransactionsRequest struct {
	AccountID snowflake.ID `validate:"required"`
	From      *time.Time
	To        *time.Time
}

// AccountTransaction is one posted line with the account's running
// debit-minus-credit balance after it.
type AccountTransaction struct {
	EntryID        snowflake.ID    `json:"entry_id"`
	EntryNumber    string          `json:"entry_number"`
	EntryDate      time.Time       `json:"entry_date"`
	Description    string          `json:"description"`
	LineNumber     int             `json:"line_number"`
	DebitAmount    decimal.Decimal `json:"debit_amount"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

type AccountTransactions struct {
	AccountID      snowflake.ID         `json:"account_id"`
	OpeningBalance decimal.Decimal      `json:"opening_balance"`
	Transactions   []AccountTransaction `json:"transactions"`
	ClosingBalance decimal.Decimal      `json:"closing_balance"`
}

type Service interface {
	CreateEntry(ctx context.Context, req CreateEntryRequest) (*JournalEntry, error)
	UpdateEntry(ctx context.Context, req UpdateEntryRequest) (*JournalEntry, error)
	DeleteEntry(ctx context.Context, id snowflake.ID) error
	VoidEntry(ctx context.Context, id snowflake.ID) (*JournalEntry, error)
	PostEntry(ctx context.Context, req PostEntryRequest) (*JournalEntry, error)
	ReverseEntry(ctx context.Context, req ReverseEntryRequest) (*JournalEntry, error)
	GetEntry(ctx context.Context, id snowflake.ID) (*JournalEntry, error)
	ListEntries(ctx context.Context, req ListEntryRequest) (ListEntryResponse, error)
	GetAccountTransactions(ctx context.Context, req AccountTransactionsRequest) (*AccountTransactions, error)
}

// PostingService runs the journal operations inside a transaction owned by
// another component.
type PostingService interface {
	CreateEntryTx(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, req CreateEntryRequest) (*JournalEntry, error)
	PostEntryTx(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, req PostEntryRequest) (*JournalEntry, error)
	ReverseEntryTx(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, req ReverseEntryRequest) (*JournalEntry, error)
}
