package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	taxdomain "github.com/smallbiznis/bookkeeping/internal/tax/domain"
	"gorm.io/gorm"
)

// buildLines computes every line of invoice. Tax percentages resolve in
// order: the line's tax rate, an explicit percentage, the company default.
func (s *Service) buildLines(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, invoice *invoicedomain.Invoice, inputs []invoicedomain.LineInput) ([]invoicedomain.InvoiceLineItem, error) {
	if len(inputs) == 0 {
		return nil, invoicedomain.ErrNoLines
	}

	var accountIDs []snowflake.ID
	for _, in := range inputs {
		if in.AccountID != nil {
			accountIDs = append(accountIDs, *in.AccountID)
		}
	}
	if len(accountIDs) > 0 {
		if _, err := s.accounts.ResolvePostable(ctx, tx, scope, accountIDs); err != nil {
			return nil, err
		}
	}

	var (
		defaultRate     *taxdomain.TaxRate
		defaultResolved bool
	)
	now := s.clock.Now()
	lines := make([]invoicedomain.InvoiceLineItem, 0, len(inputs))
	for i, in := range inputs {
		line := invoicedomain.InvoiceLineItem{
			ID:                 s.genID.Generate(),
			TenantID:           scope.TenantID,
			CompanyID:          scope.CompanyID,
			InvoiceID:          invoice.ID,
			LineNumber:         i + 1,
			Description:        strings.TrimSpace(in.Description),
			AccountID:          in.AccountID,
			Quantity:           in.Quantity,
			UnitPrice:          in.UnitPrice,
			DiscountPercentage: in.DiscountPercentage,
			DiscountAmount:     in.DiscountAmount,
			IsTaxable:          in.IsTaxable,
			CreatedAt:          now,
		}

		if in.IsTaxable && in.TaxRateID == nil {
			switch {
			case in.TaxPercentage != nil:
				line.TaxPercentage = *in.TaxPercentage
			default:
				if !defaultResolved {
					rate, err := s.tax.GetDefault(ctx, tx, scope)
					if err != nil {
						return nil, err
					}
					defaultRate, defaultResolved = rate, true
				}
				if defaultRate != nil {
					id := defaultRate.ID
					line.TaxRateID = &id
					line.TaxPercentage = defaultRate.RatePercentage
				}
			}
		}
		if err := invoicedomain.ComputeLine(&line, nil); err != nil {
			return nil, err
		}

		if in.IsTaxable && in.TaxRateID != nil {
			calc, err := s.tax.CalculateTax(ctx, tx, scope, *in.TaxRateID, line.LineSubtotal)
			if err != nil {
				return nil, err
			}
			line.TaxRateID = &calc.TaxRateID
			line.TaxPercentage = calc.RatePercentage
			if err := invoicedomain.ComputeLine(&line, &calc.TaxAmount); err != nil {
				return nil, err
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}
