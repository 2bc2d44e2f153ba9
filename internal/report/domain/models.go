// Package domain defines the read-only financial reports built from the
// chart of accounts, posted journal lines and open invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
)

type TrialBalanceLine struct {
	AccountID   snowflake.ID              `json:"account_id"`
	AccountCode string                    `json:"account_code"`
	AccountName string                    `json:"account_name"`
	AccountType accountdomain.AccountType `json:"account_type"`
	Debit       decimal.Decimal           `json:"debit"`
	Credit      decimal.Decimal           `json:"credit"`
}

type TrialBalance struct {
	AsOf        *time.Time         `json:"as_of,omitempty"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
	IsBalanced  bool               `json:"is_balanced"`
}

// AccountBalance is an account with its balance on the normal side.
type AccountBalance struct {
	AccountID   snowflake.ID    `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Balance     decimal.Decimal `json:"balance"`
}

type Section struct {
	Accounts []AccountBalance `json:"accounts"`
	Total    decimal.Decimal  `json:"total"`
}

// Add appends an account balance and folds it into the total.
func (s *Section) Add(id snowflake.ID, code, name string, balance decimal.Decimal) {
	s.Accounts = append(s.Accounts, AccountBalance{
		AccountID:   id,
		AccountCode: code,
		AccountName: name,
		Balance:     balance,
	})
	s.Total = s.Total.Add(balance)
}

type BalanceSheet struct {
	AsOf            *time.Time      `json:"as_of,omitempty"`
	Assets          Section         `json:"assets"`
	Liabilities     Section         `json:"liabilities"`
	Equity          Section         `json:"equity"`
	CurrentEarnings decimal.Decimal `json:"current_earnings"`
	// TotalLiabilitiesAndEquity includes current earnings.
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	IsBalanced                bool            `json:"is_balanced"`
}

type IncomeStatement struct {
	From      *time.Time      `json:"from,omitempty"`
	To        *time.Time      `json:"to,omitempty"`
	Revenue   Section         `json:"revenue"`
	Expenses  Section         `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

type AgedInvoice struct {
	InvoiceID     snowflake.ID    `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	DueDate       time.Time       `json:"due_date"`
	DaysPastDue   int             `json:"days_past_due"`
	Bucket        string          `json:"bucket"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

type CustomerAging struct {
	CustomerID   snowflake.ID `json:"customer_id"`
	CustomerCode string       `json:"customer_code"`
	CustomerName string       `json:"customer_name"`
	// Buckets lines up with AgedReceivables.Buckets.
	Buckets  []decimal.Decimal `json:"buckets"`
	Total    decimal.Decimal   `json:"total"`
	Invoices []AgedInvoice     `json:"invoices"`
}

type AgedReceivables struct {
	AsOf      time.Time         `json:"as_of"`
	Buckets   []string          `json:"buckets"`
	Customers []CustomerAging   `json:"customers"`
	Totals    []decimal.Decimal `json:"totals"`
	Total     decimal.Decimal   `json:"total"`
}

type CashAccountFlow struct {
	AccountID      snowflake.ID    `json:"account_id"`
	AccountCode    string          `json:"account_code"`
	AccountName    string          `json:"account_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Inflows        decimal.Decimal `json:"inflows"`
	Outflows       decimal.Decimal `json:"outflows"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

type CashFlow struct {
	From           time.Time         `json:"from"`
	To             time.Time         `json:"to"`
	Accounts       []CashAccountFlow `json:"accounts"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	Inflows        decimal.Decimal   `json:"inflows"`
	Outflows       decimal.Decimal   `json:"outflows"`
	NetChange      decimal.Decimal   `json:"net_change"`
	ClosingBalance decimal.Decimal   `json:"closing_balance"`
}

type LedgerLine struct {
	EntryID        snowflake.ID    `json:"entry_id"`
	EntryNumber    string          `json:"entry_number"`
	EntryDate      time.Time       `json:"entry_date"`
	Description    string          `json:"description"`
	DebitAmount    decimal.Decimal `json:"debit_amount"`
	CreditAmount   decimal.Decimal `json:"credit_amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountLedger carries balances on the account's normal side.
type AccountLedger struct {
	AccountID      snowflake.ID              `json:"account_id"`
	AccountCode    string                    `json:"account_code"`
	AccountName    string                    `json:"account_name"`
	AccountType    accountdomain.AccountType `json:"account_type"`
	From           *time.Time                `json:"from,omitempty"`
	To             *time.Time                `json:"to,omitempty"`
	OpeningBalance decimal.Decimal           `json:"opening_balance"`
	Lines          []LedgerLine              `json:"lines"`
	ClosingBalance decimal.Decimal           `json:"closing_balance"`
}
