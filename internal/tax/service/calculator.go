package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	taxdomain "github.com/smallbiznis/bookkeeping/internal/tax/domain"
	"gorm.io/gorm"
)

// CalculateTax resolves rateID within scope and applies it to amount.
func (s *Service) CalculateTax(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, rateID snowflake.ID, amount decimal.Decimal) (taxdomain.Calculation, error) {
	rate, err := s.repo.FindByID(ctx, tx, scope, rateID)
	if err != nil {
		return taxdomain.Calculation{}, err
	}
	if rate == nil {
		return taxdomain.Calculation{}, fmt.Errorf("%w: %s", taxdomain.ErrNotFound, rateID)
	}

	tax, err := rate.CalculateTax(amount, s.clock.Now())
	if err != nil {
		return taxdomain.Calculation{}, fmt.Errorf("%w: %s", err, rate.Code)
	}
	return taxdomain.Calculation{
		TaxRateID:      rate.ID,
		RatePercentage: rate.RatePercentage,
		TaxAmount:      tax,
	}, nil
}

// GetDefault returns the company's default rate when it is valid today, or
// nil.
func (s *Service) GetDefault(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope) (*taxdomain.TaxRate, error) {
	rate, err := s.repo.FindDefault(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	if rate == nil || !rate.IsValid(s.clock.Now()) {
		return nil, nil
	}
	return rate, nil
}
