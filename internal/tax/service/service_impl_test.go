package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	taxdomain "github.com/smallbiznis/bookkeeping/internal/tax/domain"
	"github.com/smallbiznis/bookkeeping/internal/tax/repository"
	"github.com/smallbiznis/bookkeeping/pkg/db/dbtest"
	"github.com/smallbiznis/bookkeeping/pkg/domainerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testScope = orgcontext.Scope{TenantID: "t1", CompanyID: "c1"}

func newTestService(t *testing.T) (*Service, *clock.FakeClock, context.Context) {
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake, orgcontext.WithScope(context.Background(), testScope.TenantID, testScope.CompanyID)
}

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestCreateTaxRateValidation(t *testing.T) {
	svc, _, ctx := newTestService(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "BAD", Name: "Bad", RatePercentage: pct("100.5"), EffectiveFrom: from})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidRate)

	before := from.AddDate(0, 0, -1)
	_, err = svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "BAD", Name: "Bad", RatePercentage: pct("5"), EffectiveFrom: from, EffectiveTo: &before})
	assert.ErrorIs(t, err, taxdomain.ErrInvalidRange)

	_, err = svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Name: "No code", RatePercentage: pct("5"), EffectiveFrom: from})
	assert.True(t, domainerr.IsValidation(err))

	_, err = svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "VAT", Name: "VAT", RatePercentage: pct("11"), EffectiveFrom: from})
	require.NoError(t, err)
	_, err = svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "VAT", Name: "VAT", RatePercentage: pct("12"), EffectiveFrom: from})
	assert.ErrorIs(t, err, taxdomain.ErrDuplicateCode)
}

func TestDefaultRateIsUnique(t *testing.T) {
	svc, _, ctx := newTestService(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "VAT10", Name: "VAT 10", RatePercentage: pct("10"), EffectiveFrom: from, IsDefault: true})
	require.NoError(t, err)
	second, err := svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "VAT11", Name: "VAT 11", RatePercentage: pct("11"), EffectiveFrom: from, IsDefault: true})
	require.NoError(t, err)

	def, err := svc.GetDefault(ctx, svc.db, testScope)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := svc.GetTaxRate(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)

	yes := true
	_, err = svc.UpdateTaxRate(ctx, taxdomain.UpdateTaxRateRequest{ID: first.ID, IsDefault: &yes})
	require.NoError(t, err)
	def, err = svc.GetDefault(ctx, svc.db, testScope)
	require.NoError(t, err)
	assert.Equal(t, first.ID, def.ID)

	deactivated, err := svc.DeactivateTaxRate(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	assert.False(t, deactivated.IsDefault)

	def, err = svc.GetDefault(ctx, svc.db, testScope)
	require.NoError(t, err)
	assert.Nil(t, def)

	_, err = svc.UpdateTaxRate(ctx, taxdomain.UpdateTaxRateRequest{ID: first.ID, IsDefault: &yes})
	assert.ErrorIs(t, err, taxdomain.ErrDefaultNotAllowed)
}

func TestCalculateTaxHonoursValidityWindow(t *testing.T) {
	svc, fake, ctx := newTestService(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	rate, err := svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "PPN", Name: "PPN", RatePercentage: pct("11"), EffectiveFrom: from, EffectiveTo: &to, IsDefault: true})
	require.NoError(t, err)

	calc, err := svc.CalculateTax(ctx, svc.db, testScope, rate.ID, pct("250.00"))
	require.NoError(t, err)
	assert.True(t, calc.TaxAmount.Equal(pct("27.50")))
	assert.True(t, calc.RatePercentage.Equal(pct("11")))

	fake.Set(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	_, err = svc.CalculateTax(ctx, svc.db, testScope, rate.ID, pct("250.00"))
	assert.ErrorIs(t, err, taxdomain.ErrTaxRateNotValid)
	assert.True(t, domainerr.IsRuleViolation(err))

	def, err := svc.GetDefault(ctx, svc.db, testScope)
	require.NoError(t, err)
	assert.Nil(t, def)

	_, err = svc.CalculateTax(ctx, svc.db, testScope, 42, pct("1"))
	assert.ErrorIs(t, err, taxdomain.ErrNotFound)
}

func TestListTaxRatesValidOnly(t *testing.T) {
	svc, _, ctx := newTestService(t)
	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pastEnd := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	future := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "A", Name: "Old", RatePercentage: pct("10"), EffectiveFrom: past, EffectiveTo: &pastEnd})
	require.NoError(t, err)
	_, err = svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "B", Name: "Current", RatePercentage: pct("11"), EffectiveFrom: past})
	require.NoError(t, err)
	_, err = svc.CreateTaxRate(ctx, taxdomain.CreateTaxRateRequest{Code: "C", Name: "Next", RatePercentage: pct("12"), EffectiveFrom: future})
	require.NoError(t, err)

	all, err := svc.ListTaxRates(ctx, taxdomain.ListTaxRateRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	valid, err := svc.ListTaxRates(ctx, taxdomain.ListTaxRateRequest{ValidOnly: true})
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "B", valid[0].Code)
}
