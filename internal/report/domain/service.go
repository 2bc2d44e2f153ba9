package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/pkg/domainerr"
)

type TrialBalanceRequest struct {
	// AsOf recomputes balances from posted lines dated on or before it.
	AsOf *time.Time
}

type BalanceSheetRequest struct {
	AsOf *time.Time
}

type IncomeStatementRequest struct {
	From *time.Time
	To   *time.Time
}

type AgedReceivablesRequest struct {
	// AsOf defaults to today.
	AsOf time.Time
}

type CashFlowRequest struct {
	From time.Time
	To   time.Time
}

type AccountLedgerRequest struct {
	AccountID snowflake.ID `validate:"required"`
	From      *time.Time
	To        *time.Time
}

type Service interface {
	TrialBalance(ctx context.Context, req TrialBalanceRequest) (*TrialBalance, error)
	BalanceSheet(ctx context.Context, req BalanceSheetRequest) (*BalanceSheet, error)
	IncomeStatement(ctx context.Context, req IncomeStatementRequest) (*IncomeStatement, error)
	AgedReceivables(ctx context.Context, req AgedReceivablesRequest) (*AgedReceivables, error)
	CashFlow(ctx context.Context, req CashFlowRequest) (*CashFlow, error)
	AccountLedger(ctx context.Context, req AccountLedgerRequest) (*AccountLedger, error)
}

var (
	ErrInvalidScope     = domainerr.Validation("invalid_scope")
	ErrInvalidDateRange = domainerr.Validation("invalid_date_range")
	ErrAccountNotFound  = domainerr.NotFound("account_not_found")
)
