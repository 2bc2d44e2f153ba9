package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"gorm.io/gorm"
)

type ListFilter struct {
	IsActive  *bool
	IsDefault *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rate *TaxRate) error
	FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*TaxRate, error)
	FindByCode(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, code string) (*TaxRate, error)
	FindDefault(ctx context.Context, db *gorm.DB, scope orgcontext.Scope) (*TaxRate, error)
	List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter ListFilter) ([]TaxRate, error)
	Update(ctx context.Context, db *gorm.DB, rate *TaxRate) error
	ClearDefault(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, exceptID snowflake.ID) error
}
