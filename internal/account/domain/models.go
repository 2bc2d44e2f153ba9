package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AccountType is the accounting classification of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	default:
		return false
	}
}

// DebitNormal reports whether debits increase the account's balance.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account is a node in the chart of accounts. Header accounts only group
// children and never carry postings.
type Account struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID       string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_accounts_scope_code,priority:1" json:"tenant_id"`
	CompanyID      string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_accounts_scope_code,priority:2" json:"company_id"`
	Code           string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_accounts_scope_code,priority:3" json:"code"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Description    string          `gorm:"type:text;not null;default:''" json:"description,omitempty"`
	Type           AccountType     `gorm:"type:varchar(16);not null" json:"type"`
	IsHeader       bool            `gorm:"not null;default:false" json:"is_header"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	IsCashAccount  bool            `gorm:"not null;default:false" json:"is_cash_account"`
	ParentID       *snowflake.ID   `gorm:"index" json:"parent_id,omitempty"`
	DebitBalance   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_accounts_debit_balance,debit_balance >= 0" json:"debit_balance"`
	CreditBalance  decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0;check:chk_accounts_credit_balance,credit_balance >= 0" json:"credit_balance"`
	CurrentBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"current_balance"`
	Version        int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// CalculateBalance returns the balance on the account type's normal side.
func CalculateBalance(t AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// ApplyPosting adds a posting line to the running totals and recomputes the
// current balance.
func (a *Account) ApplyPosting(debit, credit decimal.Decimal) {
	a.DebitBalance = a.DebitBalance.Add(debit)
	a.CreditBalance = a.CreditBalance.Add(credit)
	a.CurrentBalance = CalculateBalance(a.Type, a.DebitBalance, a.CreditBalance)
}

// TreeNode is a presentation view of the chart.
type TreeNode struct {
	Account  Account     `json:"account"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree nests accounts under their parents. Accounts whose parent is not
// in the input become roots. Siblings are ordered by code.
func BuildTree(accounts []Account) []*TreeNode {
	nodes := make(map[snowflake.ID]*TreeNode, len(accounts))
	for _, acc := range accounts {
		nodes[acc.ID] = &TreeNode{Account: acc}
	}

	roots := make([]*TreeNode, 0)
	for _, acc := range accounts {
		node := nodes[acc.ID]
		if acc.ParentID != nil {
			if parent, ok := nodes[*acc.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Account.Code < nodes[j].Account.Code
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
