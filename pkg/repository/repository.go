// Package repository is a small generic gorm store for child rows that need
// no hand-written SQL.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Scope narrows a query, e.g. ordering or extra conditions.
type Scope func(*gorm.DB) *gorm.DB

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, scopes ...Scope) ([]*T, error)
	FindOne(ctx context.Context, query *T, scopes ...Scope) (*T, error)
	Create(ctx context.Context, resource *T) error
	BatchCreate(ctx context.Context, resources []*T) error
	Count(ctx context.Context, query *T) (int64, error)
	Delete(ctx context.Context, query *T) error
}

// OrderBy returns a Scope ordering by the given clause.
func OrderBy(clause string) Scope {
	return func(db *gorm.DB) *gorm.DB { return db.Order(clause) }
}
