package sequence_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/internal/sequence"
	"github.com/smallbiznis/bookkeeping/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func TestNextIsMonotonicPerScope(t *testing.T) {
	conn := dbtest.Open(t)
	gen := sequence.NewGenerator(clock.NewFakeClock(testNow))
	ctx := context.Background()
	a := orgcontext.Scope{TenantID: "t1", CompanyID: "c1"}
	b := orgcontext.Scope{TenantID: "t1", CompanyID: "c2"}

	for want := int64(1); want <= 3; want++ {
		got, err := gen.Next(ctx, conn, a, sequence.JournalEntry)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := gen.Next(ctx, conn, b, sequence.JournalEntry)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = gen.Next(ctx, conn, a, sequence.Invoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNextRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	gen := sequence.NewGenerator(clock.NewFakeClock(testNow))
	ctx := context.Background()
	scope := orgcontext.Scope{TenantID: "t1", CompanyID: "c1"}

	_ = conn.Transaction(func(tx *gorm.DB) error {
		_, err := gen.Next(ctx, tx, scope, sequence.Payment)
		require.NoError(t, err)
		return assert.AnError
	})

	got, err := gen.Next(ctx, conn, scope, sequence.Payment)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNextStampsClockTime(t *testing.T) {
	conn := dbtest.Open(t)
	fake := clock.NewFakeClock(testNow)
	gen := sequence.NewGenerator(fake)
	ctx := context.Background()
	scope := orgcontext.Scope{TenantID: "t1", CompanyID: "c1"}

	_, err := gen.Next(ctx, conn, scope, sequence.Invoice)
	require.NoError(t, err)
	fake.Advance(time.Hour)
	_, err = gen.Next(ctx, conn, scope, sequence.Invoice)
	require.NoError(t, err)

	var seq sequence.Sequence
	require.NoError(t, conn.Where("tenant_id = ? AND company_id = ? AND name = ?", "t1", "c1", sequence.Invoice).Take(&seq).Error)
	assert.Equal(t, int64(2), seq.Value)
	assert.True(t, seq.UpdatedAt.Equal(testNow.Add(time.Hour)), seq.UpdatedAt.String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "JE-000042", sequence.Format("JE", 42))
}
