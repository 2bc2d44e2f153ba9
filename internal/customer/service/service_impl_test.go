package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/customer/domain"
	"github.com/smallbiznis/bookkeeping/internal/customer/repository"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/pkg/db/dbtest"
	"github.com/smallbiznis/bookkeeping/pkg/domainerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) domain.Service {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{DB: dbtest.Open(t), Log: zap.NewNop(), GenID: node, Clock: clock.NewFakeClock(testNow), Repo: repository.Provide()})
}

func TestCreateAndGetCustomer(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithScope(context.Background(), "t1", "c1")

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Code: " C-001 ", Name: "Acme", Email: "ap@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, "C-001", created.Code)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.True(t, got.CreatedAt.Equal(testNow), got.CreatedAt.String())

	other := orgcontext.WithScope(context.Background(), "t1", "c2")
	_, err = svc.GetByID(other, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateCustomerRejectsDuplicateCode(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithScope(context.Background(), "t1", "c1")

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Code: "C-001", Name: "Acme", Email: "ap@acme.test"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Code: "C-001", Name: "Other", Email: "x@other.test"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
	assert.True(t, domainerr.IsRuleViolation(err))
}

func TestCreateCustomerValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithScope(context.Background(), "t1", "c1")

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Code: "C-001", Name: "Acme", Email: "not-an-email"})
	assert.True(t, domainerr.IsValidation(err))

	_, err = svc.Create(context.Background(), domain.CreateCustomerRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidScope)
}

func TestListCustomers(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithScope(context.Background(), "t1", "c1")
	for _, code := range []string{"A", "B", "C"} {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Code: code, Name: "Customer " + code, Email: code + "@example.test"})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 3)
	assert.False(t, resp.HasMore)
}
