package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"gorm.io/gorm"
)

type CreateAccountRequest struct {
	Code          string        `validate:"required,max=32"`
	Name          string        `validate:"required,max=255"`
	Description   string        `validate:"max=1000"`
	Type          AccountType   `validate:"required"`
	IsHeader      bool          `validate:"-"`
	IsCashAccount bool          `validate:"-"`
	ParentID      *snowflake.ID `validate:"omitempty"`
}

// UpdateAccountRequest changes descriptive fields. Nil fields are left as is.
// ClearParent detaches the account from its parent.
type UpdateAccountRequest struct {
	ID            snowflake.ID  `validate:"required"`
	Name          *string       `validate:"omitempty,min=1,max=255"`
	Description   *string       `validate:"omitempty,max=1000"`
	IsActive      *bool         `validate:"-"`
	IsHeader      *bool         `validate:"-"`
	IsCashAccount *bool         `validate:"-"`
	ParentID      *snowflake.ID `validate:"-"`
	ClearParent   bool          `validate:"-"`
}

type ListAccountRequest struct {
	Type     AccountType
	IsActive *bool
	IsHeader *bool
}

type Service interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	UpdateAccount(ctx context.Context, req UpdateAccountRequest) (*Account, error)
	DeleteAccount(ctx context.Context, id snowflake.ID) error
	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
	GetAccountByCode(ctx context.Context, code string) (*Account, error)
	ListAccounts(ctx context.Context, req ListAccountRequest) ([]Account, error)
	BuildTree(ctx context.Context) ([]*TreeNode, error)
}

// PostingService is the narrow view of the chart used by the ledger. It is
// the only path through which account balances change.
type PostingService interface {
	// ResolvePostable loads the accounts and fails unless every id exists,
	// is active and is not a header.
	ResolvePostable(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, ids []snowflake.ID) (map[snowflake.ID]*Account, error)
	// UpdateBalance applies one posting line to one account.
	UpdateBalance(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, accountID snowflake.ID, debit, credit decimal.Decimal) (*Account, error)
}
