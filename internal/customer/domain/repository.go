package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, id snowflake.ID) (*Customer, error)
	FindByIDs(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, ids []snowflake.ID) ([]Customer, error)
	List(ctx context.Context, db *gorm.DB, scope orgcontext.Scope, filter ListCustomerFilter, page pagination.Pagination) ([]Customer, error)
}
