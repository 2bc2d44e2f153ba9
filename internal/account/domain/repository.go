package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"gorm.io/gorm"
)

type ListFilter struct {
	Type     AccountType
	IsActive *bool
	IsHeader *bool
	IsCash   *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Account, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Account, error)
	FindByCode(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, code string) (*Account, error)
	FindByIDs(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, ids []snowflake.ID) ([]Account, error)
	List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter ListFilter) ([]Account, error)
	CountChildren(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, account *Account) error
	// UpdateBalances writes the balance columns only when the stored version
	// still equals expectedVersion, and reports the affected row count.
	UpdateBalances(ctx context.Context, db *gorm.DB, account *Account, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) error
}
