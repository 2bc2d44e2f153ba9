package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/clock"
)

var hundred = decimal.NewFromInt(100)

// TaxRate is a percentage applied to taxable invoice lines within its
// effective window. At most one rate per company is the default.
type TaxRate struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID       string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_tax_rates_scope_code,priority:1" json:"tenant_id"`
	CompanyID      string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_tax_rates_scope_code,priority:2" json:"company_id"`
	Code           string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_tax_rates_scope_code,priority:3" json:"code"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Description    string          `gorm:"type:text;not null;default:''" json:"description,omitempty"`
	RatePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;check:chk_tax_rates_percentage,rate_percentage >= 0 AND rate_percentage <= 100" json:"rate_percentage"`
	EffectiveFrom  time.Time       `gorm:"not null" json:"effective_from"`
	EffectiveTo    *time.Time      `json:"effective_to,omitempty"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	IsDefault      bool            `gorm:"not null;default:false" json:"is_default"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (TaxRate) TableName() string { return "tax_rates" }

// IsValid reports whether the rate may be applied on the day of now.
func (r *TaxRate) IsValid(now time.Time) bool {
	if r == nil || !r.IsActive {
		return false
	}
	today := clock.Date(now)
	if clock.Date(r.EffectiveFrom).After(today) {
		return false
	}
	if r.EffectiveTo != nil && clock.Date(*r.EffectiveTo).Before(today) {
		return false
	}
	return true
}

// CalculateTax applies the rate to amount, failing when the rate is outside
// its validity window on the day of now.
func (r *TaxRate) CalculateTax(amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !r.IsValid(now) {
		return decimal.Zero, ErrTaxRateNotValid
	}
	return ComputeTax(amount, r.RatePercentage), nil
}

// ComputeTax returns amount * percentage / 100 rounded to cents.
func ComputeTax(amount, percentage decimal.Decimal) decimal.Decimal {
	if amount.Sign() <= 0 || percentage.Sign() <= 0 {
		return decimal.Zero
	}
	return amount.Mul(percentage).Div(hundred).Round(2)
}

// ValidPercentage reports whether p lies in [0, 100].
func ValidPercentage(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// Calculation is the result of applying a stored rate to an amount.
type Calculation struct {
	TaxRateID      snowflake.ID
	RatePercentage decimal.Decimal
	TaxAmount      decimal.Decimal
}
