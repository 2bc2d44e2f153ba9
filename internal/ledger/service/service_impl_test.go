package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	accountrepo "github.com/smallbiznis/bookkeeping/internal/account/repository"
	accountservice "github.com/smallbiznis/bookkeeping/internal/account/service"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	"github.com/smallbiznis/bookkeeping/internal/ledger/repository"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/smallbiznis/bookkeeping/internal/sequence"
	"github.com/smallbiznis/bookkeeping/pkg/db/dbtest"
	"github.com/smallbiznis/bookkeeping/pkg/domainerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	ctx      context.Context
	conn     *gorm.DB
	node     *snowflake.Node
	ledger   *Service
	accounts *accountservice.Service
	clock    *clock.FakeClock
	cash     *accountdomain.Account
	sales    *accountdomain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	accounts := accountservice.NewService(accountservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  accountrepo.Provide(),
	})
	ledger := NewService(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Accounts:  accounts,
		Sequences: sequence.NewGenerator(fake),
	})

	ctx := orgcontext.WithActor(orgcontext.WithScope(context.Background(), "t1", "c1"), "user-1")
	f := &fixture{ctx: ctx, conn: conn, node: node, ledger: ledger, accounts: accounts, clock: fake}
	f.cash, err = accounts.CreateAccount(ctx, accountdomain.CreateAccountRequest{Code: "1000", Name: "Cash", Type: accountdomain.AccountTypeAsset})
	require.NoError(t, err)
	f.sales, err = accounts.CreateAccount(ctx, accountdomain.CreateAccountRequest{Code: "4000", Name: "Sales", Type: accountdomain.AccountTypeRevenue})
	require.NoError(t, err)
	return f
}

// failingPosting lets the first failOn-1 balance updates through and fails
// the next one.
type failingPosting struct {
	accountdomain.PostingService
	failOn int
	calls  int
}

var errBalanceWrite = errors.New("balance write failed")

func (p *failingPosting) UpdateBalance(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, accountID snowflake.ID, debit, credit decimal.Decimal) (*accountdomain.Account, error) {
	p.calls++
	if p.calls == p.failOn {
		return nil, errBalanceWrite
	}
	return p.PostingService.UpdateBalance(ctx, tx, scope, accountID, debit, credit)
}

func (f *fixture) ledgerWith(posting accountdomain.PostingService) *Service {
	return NewService(Params{
		DB:        f.conn,
		Log:       zap.NewNop(),
		GenID:     f.node,
		Clock:     f.clock,
		Repo:      repository.Provide(),
		Accounts:  posting,
		Sequences: sequence.NewGenerator(f.clock),
	})
}

func amt(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (f *fixture) saleLines(amount string) []ledgerdomain.LineInput {
	return []ledgerdomain.LineInput{
		{AccountID: f.cash.ID, DebitAmount: amt(amount), CreditAmount: decimal.Zero},
		{AccountID: f.sales.ID, DebitAmount: decimal.Zero, CreditAmount: amt(amount)},
	}
}

func (f *fixture) balance(t *testing.T, id snowflake.ID) decimal.Decimal {
	t.Helper()
	acc, err := f.accounts.GetAccount(f.ctx, id)
	require.NoError(t, err)
	return acc.CurrentBalance
}

func TestPostAndReverseEntry(t *testing.T) {
	f := newFixture(t)

	entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{
		EntryNumber: "JE-001",
		EntryDate:   f.clock.Now(),
		Description: "Cash sale",
		Lines:       f.saleLines("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusDraft, entry.Status)
	assert.True(t, f.balance(t, f.cash.ID).IsZero())

	posted, err := f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	assert.Equal(t, "user-1", *posted.PostedBy)
	assert.True(t, f.balance(t, f.cash.ID).Equal(amt("100.00")))
	assert.True(t, f.balance(t, f.sales.ID).Equal(amt("100.00")))

	_, err = f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	assert.ErrorIs(t, err, ledgerdomain.ErrNotDraft)

	reversal, err := f.ledger.ReverseEntry(f.ctx, ledgerdomain.ReverseEntryRequest{ID: entry.ID})
	require.NoError(t, err)
	assert.Equal(t, "JE-001-REV", reversal.EntryNumber)
	assert.True(t, reversal.IsReversal)
	assert.Equal(t, ledgerdomain.EntryStatusPosted, reversal.Status)
	require.Len(t, reversal.Lines, 2)
	assert.Equal(t, f.cash.ID, reversal.Lines[0].AccountID)
	assert.True(t, reversal.Lines[0].CreditAmount.Equal(amt("100.00")))
	assert.Equal(t, f.sales.ID, reversal.Lines[1].AccountID)
	assert.True(t, reversal.Lines[1].DebitAmount.Equal(amt("100.00")))

	assert.True(t, f.balance(t, f.cash.ID).IsZero())
	assert.True(t, f.balance(t, f.sales.ID).IsZero())

	original, err := f.ledger.GetEntry(f.ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusReversed, original.Status)
	require.NotNil(t, original.ReversedByID)
	assert.Equal(t, reversal.ID, *original.ReversedByID)

	_, err = f.ledger.ReverseEntry(f.ctx, ledgerdomain.ReverseEntryRequest{ID: entry.ID})
	assert.ErrorIs(t, err, ledgerdomain.ErrAlreadyReversed)
	_, err = f.ledger.ReverseEntry(f.ctx, ledgerdomain.ReverseEntryRequest{ID: reversal.ID})
	assert.ErrorIs(t, err, ledgerdomain.ErrReversalOfReversal)
}

func TestReverseEntryNumberCollisionUsesSequence(t *testing.T) {
	f := newFixture(t)

	blocker, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{
		EntryNumber: "JE-7-REV",
		EntryDate:   f.clock.Now(),
		Lines:       f.saleLines("1.00"),
	})
	require.NoError(t, err)
	require.NotNil(t, blocker)

	entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{
		EntryNumber: "JE-7",
		EntryDate:   f.clock.Now(),
		Lines:       f.saleLines("5.00"),
	})
	require.NoError(t, err)
	_, err = f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	require.NoError(t, err)

	reversal, err := f.ledger.ReverseEntry(f.ctx, ledgerdomain.ReverseEntryRequest{ID: entry.ID, Description: "Mistake"})
	require.NoError(t, err)
	assert.Equal(t, "JE-7-REV-1", reversal.EntryNumber)
	assert.Equal(t, "Mistake", reversal.Description)
}

func TestReverseRequiresPostedEntry(t *testing.T) {
	f := newFixture(t)
	entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("10.00")})
	require.NoError(t, err)

	_, err = f.ledger.ReverseEntry(f.ctx, ledgerdomain.ReverseEntryRequest{ID: entry.ID})
	assert.ErrorIs(t, err, ledgerdomain.ErrNotPosted)
	assert.True(t, domainerr.IsRuleViolation(err))
}

func TestCreateEntryRules(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{
		EntryDate: f.clock.Now(),
		Lines: []ledgerdomain.LineInput{
			{AccountID: f.cash.ID, DebitAmount: amt("100.00")},
			{AccountID: f.sales.ID, CreditAmount: amt("90.00")},
		},
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrUnbalancedEntry)

	header, err := f.accounts.CreateAccount(f.ctx, accountdomain.CreateAccountRequest{Code: "1", Name: "Assets", Type: accountdomain.AccountTypeAsset, IsHeader: true})
	require.NoError(t, err)
	_, err = f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{
		EntryDate: f.clock.Now(),
		Lines: []ledgerdomain.LineInput{
			{AccountID: header.ID, DebitAmount: amt("1.00")},
			{AccountID: f.sales.ID, CreditAmount: amt("1.00")},
		},
	})
	assert.ErrorIs(t, err, accountdomain.ErrHeaderAccount)

	first, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("1.00")})
	require.NoError(t, err)
	assert.Equal(t, "JE-000001", first.EntryNumber)
	second, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("1.00")})
	require.NoError(t, err)
	assert.Equal(t, "JE-000002", second.EntryNumber)

	_, err = f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryNumber: "JE-000001", EntryDate: f.clock.Now(), Lines: f.saleLines("1.00")})
	assert.ErrorIs(t, err, ledgerdomain.ErrDuplicateEntryNumber)
}

func TestDraftLifecycle(t *testing.T) {
	f := newFixture(t)
	entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("10.00")})
	require.NoError(t, err)

	desc := "Corrected"
	updated, err := f.ledger.UpdateEntry(f.ctx, ledgerdomain.UpdateEntryRequest{ID: entry.ID, Description: &desc, Lines: f.saleLines("12.50")})
	require.NoError(t, err)
	assert.Equal(t, "Corrected", updated.Description)
	assert.True(t, updated.TotalDebit.Equal(amt("12.50")))

	got, err := f.ledger.GetEntry(f.ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[0].DebitAmount.Equal(amt("12.50")))

	voided, err := f.ledger.VoidEntry(f.ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusVoid, voided.Status)

	_, err = f.ledger.UpdateEntry(f.ctx, ledgerdomain.UpdateEntryRequest{ID: entry.ID, Description: &desc})
	assert.ErrorIs(t, err, ledgerdomain.ErrNotDraft)
	_, err = f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	assert.ErrorIs(t, err, ledgerdomain.ErrNotDraft)
	assert.ErrorIs(t, f.ledger.DeleteEntry(f.ctx, entry.ID), ledgerdomain.ErrNotDraft)

	draft, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("3.00")})
	require.NoError(t, err)
	require.NoError(t, f.ledger.DeleteEntry(f.ctx, draft.ID))
	_, err = f.ledger.GetEntry(f.ctx, draft.ID)
	assert.ErrorIs(t, err, ledgerdomain.ErrNotFound)
}

func TestPostEntryRejectsInactiveAccount(t *testing.T) {
	f := newFixture(t)
	entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("10.00")})
	require.NoError(t, err)

	inactive := false
	_, err = f.accounts.UpdateAccount(f.ctx, accountdomain.UpdateAccountRequest{ID: f.sales.ID, IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	assert.ErrorIs(t, err, accountdomain.ErrAccountInactive)
	assert.True(t, f.balance(t, f.cash.ID).IsZero())

	got, err := f.ledger.GetEntry(f.ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusDraft, got.Status)
}

func TestPostEntryFailurePartwayRollsBack(t *testing.T) {
	f := newFixture(t)
	entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("25.00")})
	require.NoError(t, err)

	posting := &failingPosting{PostingService: f.accounts, failOn: 2}
	_, err = f.ledgerWith(posting).PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	assert.ErrorIs(t, err, errBalanceWrite)
	assert.Equal(t, 2, posting.calls)

	assert.True(t, f.balance(t, f.cash.ID).IsZero(), f.balance(t, f.cash.ID).String())
	assert.True(t, f.balance(t, f.sales.ID).IsZero())
	got, err := f.ledger.GetEntry(f.ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusDraft, got.Status)
	assert.Nil(t, got.PostedAt)

	posted, err := f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusPosted, posted.Status)
	assert.True(t, f.balance(t, f.cash.ID).Equal(amt("25.00")))
}

func TestReverseEntryFailurePartwayRollsBack(t *testing.T) {
	f := newFixture(t)
	entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{
		EntryNumber: "JE-100",
		EntryDate:   f.clock.Now(),
		Lines:       f.saleLines("40.00"),
	})
	require.NoError(t, err)
	_, err = f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
	require.NoError(t, err)

	posting := &failingPosting{PostingService: f.accounts, failOn: 2}
	_, err = f.ledgerWith(posting).ReverseEntry(f.ctx, ledgerdomain.ReverseEntryRequest{ID: entry.ID})
	assert.ErrorIs(t, err, errBalanceWrite)

	assert.True(t, f.balance(t, f.cash.ID).Equal(amt("40.00")), f.balance(t, f.cash.ID).String())
	assert.True(t, f.balance(t, f.sales.ID).Equal(amt("40.00")))
	original, err := f.ledger.GetEntry(f.ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusPosted, original.Status)
	assert.Nil(t, original.ReversedByID)

	page, err := f.ledger.ListEntries(f.ctx, ledgerdomain.ListEntryRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 1)

	reversal, err := f.ledger.ReverseEntry(f.ctx, ledgerdomain.ReverseEntryRequest{ID: entry.ID})
	require.NoError(t, err)
	assert.Equal(t, "JE-100-REV", reversal.EntryNumber)
	assert.True(t, f.balance(t, f.cash.ID).IsZero())
}

func TestGetAccountTransactions(t *testing.T) {
	f := newFixture(t)
	post := func(date time.Time, amount string) {
		entry, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: date, Lines: f.saleLines(amount)})
		require.NoError(t, err)
		_, err = f.ledger.PostEntry(f.ctx, ledgerdomain.PostEntryRequest{ID: entry.ID})
		require.NoError(t, err)
	}
	post(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), "40.00")
	post(time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), "25.00")
	post(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), "10.00")

	_, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC), Lines: f.saleLines("999.00")})
	require.NoError(t, err)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	got, err := f.ledger.GetAccountTransactions(f.ctx, ledgerdomain.AccountTransactionsRequest{AccountID: f.cash.ID, From: &from, To: &to})
	require.NoError(t, err)

	assert.True(t, got.OpeningBalance.Equal(amt("40.00")))
	require.Len(t, got.Transactions, 2)
	assert.True(t, got.Transactions[0].RunningBalance.Equal(amt("65.00")))
	assert.True(t, got.Transactions[1].RunningBalance.Equal(amt("75.00")))
	assert.True(t, got.ClosingBalance.Equal(amt("75.00")))

	sales, err := f.ledger.GetAccountTransactions(f.ctx, ledgerdomain.AccountTransactionsRequest{AccountID: f.sales.ID})
	require.NoError(t, err)
	assert.Len(t, sales.Transactions, 3)
	assert.True(t, sales.ClosingBalance.Equal(amt("-75.00")))

	_, err = f.ledger.GetAccountTransactions(f.ctx, ledgerdomain.AccountTransactionsRequest{AccountID: f.cash.ID, From: &to, To: &from})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidDateRange)
}

func TestListEntries(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.ledger.CreateEntry(f.ctx, ledgerdomain.CreateEntryRequest{EntryDate: f.clock.Now(), Lines: f.saleLines("1.00")})
		require.NoError(t, err)
	}

	page, err := f.ledger.ListEntries(f.ctx, ledgerdomain.ListEntryRequest{Status: ledgerdomain.EntryStatusDraft})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 3)
	assert.False(t, page.PageInfo.HasMore)

	req := ledgerdomain.ListEntryRequest{}
	req.PageSize = 2
	first, err := f.ledger.ListEntries(f.ctx, req)
	require.NoError(t, err)
	assert.Len(t, first.Entries, 2)
	assert.True(t, first.PageInfo.HasMore)

	req.PageToken = first.PageInfo.NextPageToken
	second, err := f.ledger.ListEntries(f.ctx, req)
	require.NoError(t, err)
	assert.Len(t, second.Entries, 1)

	posted, err := f.ledger.ListEntries(f.ctx, ledgerdomain.ListEntryRequest{Status: ledgerdomain.EntryStatusPosted})
	require.NoError(t, err)
	assert.Empty(t, posted.Entries)
}
