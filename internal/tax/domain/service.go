package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"gorm.io/gorm"
)

type CreateTaxRateRequest struct {
	Code           string          `validate:"required,max=32"`
	Name           string          `validate:"required,max=255"`
	Description    string          `validate:"-"`
	RatePercentage decimal.Decimal `validate:"-"`
	EffectiveFrom  time.Time       `validate:"required"`
	EffectiveTo    *time.Time      `validate:"-"`
	IsDefault      bool            `validate:"-"`
}

type UpdateTaxRateRequest struct {
	ID             snowflake.ID     `validate:"required"`
	Name           *string          `validate:"omitempty,min=1,max=255"`
	Description    *string          `validate:"-"`
	RatePercentage *decimal.Decimal `validate:"-"`
	EffectiveFrom  *time.Time       `validate:"-"`
	EffectiveTo    *time.Time       `validate:"-"`
	ClearEffective bool             `validate:"-"`
	IsActive       *bool            `validate:"-"`
	IsDefault      *bool            `validate:"-"`
}

type ListTaxRateRequest struct {
	IsActive  *bool
	ValidOnly bool
}

type Service interface {
	CreateTaxRate(ctx context.Context, req CreateTaxRateRequest) (*TaxRate, error)
	UpdateTaxRate(ctx context.Context, req UpdateTaxRateRequest) (*TaxRate, error)
	DeactivateTaxRate(ctx context.Context, id snowflake.ID) (*TaxRate, error)
	GetTaxRate(ctx context.Context, id snowflake.ID) (*TaxRate, error)
	ListTaxRates(ctx context.Context, req ListTaxRateRequest) ([]TaxRate, error)
}

// Calculator is the read side used by invoicing. It runs on the caller's
// transaction.
type Calculator interface {
	CalculateTax(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, rateID snowflake.ID, amount decimal.Decimal) (Calculation, error)
	GetDefault(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope) (*TaxRate, error)
}
