package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	accountrepo "github.com/smallbiznis/bookkeeping/internal/account/repository"
	accountservice "github.com/smallbiznis/bookkeeping/internal/account/service"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	customerdomain "github.com/smallbiznis/bookkeeping/internal/customer/domain"
	customerrepo "github.com/smallbiznis/bookkeeping/internal/customer/repository"
	customerservice "github.com/smallbiznis/bookkeeping/internal/customer/service"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/bookkeeping/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/bookkeeping/internal/invoice/service"
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/bookkeeping/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/bookkeeping/internal/ledger/service"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	paymentdomain "github.com/smallbiznis/bookkeeping/internal/payment/domain"
	"github.com/smallbiznis/bookkeeping/internal/payment/repository"
	"github.com/smallbiznis/bookkeeping/internal/sequence"
	taxrepo "github.com/smallbiznis/bookkeeping/internal/tax/repository"
	taxservice "github.com/smallbiznis/bookkeeping/internal/tax/service"
	"github.com/smallbiznis/bookkeeping/pkg/db/dbtest"
	"github.com/smallbiznis/bookkeeping/pkg/domainerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	ctx        context.Context
	payments   *Service
	invoices   *invoiceservice.Service
	ledger     *ledgerservice.Service
	accounts   *accountservice.Service
	clock      *clock.FakeClock
	customer   customerdomain.Customer
	other      customerdomain.Customer
	cash       *accountdomain.Account
	receivable *accountdomain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	seq := sequence.NewGenerator(fake)

	accounts := accountservice.NewService(accountservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  accountrepo.Provide(),
	})
	customers := customerservice.New(customerservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  customerrepo.Provide(),
	})
	tax := taxservice.NewService(taxservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  taxrepo.Provide(),
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      ledgerrepo.Provide(),
		Accounts:  accounts,
		Sequences: seq,
	})
	invoices := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      invoicerepo.Provide(),
		Customers: customers,
		Accounts:  accounts,
		Tax:       tax,
		Sequences: seq,
	})
	payments := NewService(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Customers: customers,
		Invoices:  invoices,
		Ledger:    ledger,
		Sequences: seq,
	})

	ctx := orgcontext.WithActor(orgcontext.WithScope(context.Background(), "t1", "c1"), "user-1")
	f := &fixture{ctx: ctx, payments: payments, invoices: invoices, ledger: ledger, accounts: accounts, clock: fake}
	f.customer, err = customers.Create(ctx, customerdomain.CreateCustomerRequest{Code: "ACME", Name: "Acme", Email: "ap@acme.test"})
	require.NoError(t, err)
	f.other, err = customers.Create(ctx, customerdomain.CreateCustomerRequest{Code: "GLOBEX", Name: "Globex", Email: "ap@globex.test"})
	require.NoError(t, err)
	f.cash, err = accounts.CreateAccount(ctx, accountdomain.CreateAccountRequest{Code: "1000", Name: "Cash", Type: accountdomain.AccountTypeAsset, IsCashAccount: true})
	require.NoError(t, err)
	f.receivable, err = accounts.CreateAccount(ctx, accountdomain.CreateAccountRequest{Code: "1200", Name: "Accounts Receivable", Type: accountdomain.AccountTypeAsset})
	require.NoError(t, err)
	return f
}

func amt(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (f *fixture) sentInvoice(t *testing.T, number string, customerID snowflake.ID, total string) *invoicedomain.Invoice {
	t.Helper()
	inv, err := f.invoices.CreateInvoice(f.ctx, invoicedomain.CreateInvoiceRequest{
		InvoiceNumber: number,
		CustomerID:    customerID,
		InvoiceDate:   f.clock.Now(),
		DueDate:       f.clock.Now().AddDate(0, 0, 30),
		Lines: []invoicedomain.LineInput{
			{Description: "Services", Quantity: amt("1"), UnitPrice: amt(total)},
		},
	})
	require.NoError(t, err)
	inv, err = f.invoices.SendInvoice(f.ctx, inv.ID)
	require.NoError(t, err)
	return inv
}

func (f *fixture) newPayment(t *testing.T, number, amount string) *paymentdomain.Payment {
	t.Helper()
	p, err := f.payments.CreatePayment(f.ctx, paymentdomain.CreatePaymentRequest{
		PaymentNumber: number,
		CustomerID:    f.customer.ID,
		PaymentDate:   f.clock.Now(),
		PaymentMethod: paymentdomain.PaymentMethodBankTransfer,
		Amount:        amt(amount),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) invoice(t *testing.T, id snowflake.ID) *invoicedomain.Invoice {
	t.Helper()
	inv, err := f.invoices.GetInvoice(f.ctx, id)
	require.NoError(t, err)
	return inv
}

func (f *fixture) payment(t *testing.T, id snowflake.ID) *paymentdomain.Payment {
	t.Helper()
	p, err := f.payments.GetPayment(f.ctx, id)
	require.NoError(t, err)
	return p
}

func assertConsistent(t *testing.T, p *paymentdomain.Payment) {
	t.Helper()
	assert.True(t, p.AllocatedAmount.Add(p.UnallocatedAmount).Equal(p.PaymentAmount),
		"allocated %s + unallocated %s != amount %s", p.AllocatedAmount, p.UnallocatedAmount, p.PaymentAmount)
	sum := decimal.Zero
	for _, a := range p.Allocations {
		if !a.IsVoided {
			sum = sum.Add(a.AllocationAmount)
		}
	}
	assert.True(t, sum.Equal(p.AllocatedAmount), "active allocations %s != allocated %s", sum, p.AllocatedAmount)
}

func TestAllocatePartiallyPaysInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.sentInvoice(t, "INV-001", f.customer.ID, "200.00")
	pay := f.newPayment(t, "PAY-001", "150.00")
	assert.Equal(t, paymentdomain.PaymentStatusPending, pay.Status)
	assert.True(t, pay.UnallocatedAmount.Equal(amt("150.00")))

	pay, err := f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   pay.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("150.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusAllocated, pay.Status)
	assert.True(t, pay.UnallocatedAmount.IsZero())
	require.Len(t, pay.Allocations, 1)
	assertConsistent(t, pay)

	got := f.invoice(t, inv.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, got.Status)
	assert.True(t, got.BalanceDue.Equal(amt("50.00")), got.BalanceDue.String())
	assert.True(t, got.PaidAmount.Equal(amt("150.00")))
}

func TestAllocateBeyondBalanceDueLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	inv := f.sentInvoice(t, "INV-001", f.customer.ID, "200.00")
	pay := f.newPayment(t, "PAY-001", "150.00")
	_, err := f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   pay.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("150.00")}},
	})
	require.NoError(t, err)

	_, err = f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   pay.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("60.00")}},
	})
	require.Error(t, err)
	assert.True(t, domainerr.IsRuleViolation(err))

	second := f.newPayment(t, "PAY-002", "100.00")
	_, err = f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   second.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("60.00")}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrExceedsBalanceDue)

	got := f.invoice(t, inv.ID)
	assert.True(t, got.BalanceDue.Equal(amt("50.00")))
	assert.Equal(t, invoicedomain.InvoiceStatusPartiallyPaid, got.Status)
	p := f.payment(t, pay.ID)
	assert.True(t, p.UnallocatedAmount.IsZero())
	assertConsistent(t, p)
	p = f.payment(t, second.ID)
	assert.True(t, p.UnallocatedAmount.Equal(amt("100.00")))
	assert.Empty(t, p.Allocations)
}

func TestAllocateRules(t *testing.T) {
	f := newFixture(t)
	inv1 := f.sentInvoice(t, "INV-1", f.customer.ID, "100.00")
	inv2 := f.sentInvoice(t, "INV-2", f.customer.ID, "100.00")
	foreign := f.sentInvoice(t, "INV-X", f.other.ID, "100.00")
	pay := f.newPayment(t, "PAY-1", "120.00")

	tests := []struct {
		name   string
		inputs []paymentdomain.AllocationInput
		want   error
	}{
		{"empty", nil, paymentdomain.ErrNoAllocations},
		{"duplicate in call", []paymentdomain.AllocationInput{{InvoiceID: inv1.ID, Amount: amt("10.00")}, {InvoiceID: inv1.ID, Amount: amt("10.00")}}, paymentdomain.ErrDuplicateAllocation},
		{"other customer", []paymentdomain.AllocationInput{{InvoiceID: foreign.ID, Amount: amt("10.00")}}, paymentdomain.ErrCustomerMismatch},
		{"exceeds unallocated", []paymentdomain.AllocationInput{{InvoiceID: inv1.ID, Amount: amt("100.00")}, {InvoiceID: inv2.ID, Amount: amt("20.01")}}, paymentdomain.ErrExceedsUnallocated},
		{"zero amount", []paymentdomain.AllocationInput{{InvoiceID: inv1.ID, Amount: decimal.Zero}}, paymentdomain.ErrInvalidAmount},
		{"unknown invoice", []paymentdomain.AllocationInput{{InvoiceID: 777, Amount: amt("1.00")}}, invoicedomain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{PaymentID: pay.ID, Allocations: tt.inputs})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Nothing above may have left a partial effect.
	assert.True(t, f.invoice(t, inv1.ID).PaidAmount.IsZero())
	assert.True(t, f.invoice(t, inv2.ID).PaidAmount.IsZero())
	assert.True(t, f.payment(t, pay.ID).UnallocatedAmount.Equal(amt("120.00")))

	pay, err := f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID: pay.ID,
		Allocations: []paymentdomain.AllocationInput{
			{InvoiceID: inv1.ID, Amount: amt("100.00")},
			{InvoiceID: inv2.ID, Amount: amt("20.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusAllocated, pay.Status)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, f.invoice(t, inv1.ID).Status)
	assertConsistent(t, pay)

	voided, err := f.invoices.CreateInvoice(f.ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: f.customer.ID, InvoiceDate: f.clock.Now(), DueDate: f.clock.Now(),
		Lines: []invoicedomain.LineInput{{Description: "x", Quantity: amt("1"), UnitPrice: amt("5.00")}},
	})
	require.NoError(t, err)
	_, err = f.invoices.VoidInvoice(f.ctx, invoicedomain.VoidInvoiceRequest{ID: voided.ID})
	require.NoError(t, err)
	extra := f.newPayment(t, "PAY-2", "5.00")
	_, err = f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   extra.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: voided.ID, Amount: amt("5.00")}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvoiceNotPayable)
	_, err = f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   extra.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv1.ID, Amount: amt("1.00")}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrNoBalanceDue)
}

func TestCreatePaymentWithInitialAllocations(t *testing.T) {
	f := newFixture(t)
	inv := f.sentInvoice(t, "INV-001", f.customer.ID, "80.00")

	pay, err := f.payments.CreatePayment(f.ctx, paymentdomain.CreatePaymentRequest{
		CustomerID:    f.customer.ID,
		PaymentDate:   f.clock.Now(),
		PaymentMethod: paymentdomain.PaymentMethodCash,
		Amount:        amt("100.00"),
		Allocations:   []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("80.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-000001", pay.PaymentNumber)
	assert.Equal(t, paymentdomain.PaymentStatusPartiallyAllocated, pay.Status)
	assert.True(t, pay.UnallocatedAmount.Equal(amt("20.00")))
	require.NotNil(t, pay.CreatedBy)
	assert.Equal(t, "user-1", *pay.CreatedBy)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, f.invoice(t, inv.ID).Status)

	_, err = f.payments.CreatePayment(f.ctx, paymentdomain.CreatePaymentRequest{
		CustomerID:    f.customer.ID,
		PaymentDate:   f.clock.Now(),
		PaymentMethod: paymentdomain.PaymentMethodCash,
		Amount:        amt("10.00"),
		Allocations:   []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("10.00")}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrNoBalanceDue)
	list, err := f.payments.ListPayments(f.ctx, paymentdomain.ListPaymentRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Payments, 1, "failed allocation rolls back the payment")
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newFixture(t)
	base := paymentdomain.CreatePaymentRequest{
		CustomerID:    f.customer.ID,
		PaymentDate:   f.clock.Now(),
		PaymentMethod: paymentdomain.PaymentMethodCheck,
		Amount:        amt("10.00"),
	}

	req := base
	req.Amount = decimal.Zero
	_, err := f.payments.CreatePayment(f.ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	req = base
	req.Amount = amt("1.005")
	_, err = f.payments.CreatePayment(f.ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	req = base
	req.DepositAccountID = &f.cash.ID
	_, err = f.payments.CreatePayment(f.ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrIncompleteAccounts)

	req = base
	req.CustomerID = 4242
	_, err = f.payments.CreatePayment(f.ctx, req)
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)

	req = base
	req.PaymentMethod = "barter"
	_, err = f.payments.CreatePayment(f.ctx, req)
	assert.Error(t, err)

	req = base
	req.PaymentNumber = "PAY-X"
	_, err = f.payments.CreatePayment(f.ctx, req)
	require.NoError(t, err)
	_, err = f.payments.CreatePayment(f.ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrDuplicateNumber)
}

func TestVoidAllocationRestoresBalances(t *testing.T) {
	f := newFixture(t)
	inv := f.sentInvoice(t, "INV-001", f.customer.ID, "200.00")
	pay := f.newPayment(t, "PAY-001", "150.00")
	pay, err := f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   pay.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("150.00")}},
	})
	require.NoError(t, err)
	allocationID := pay.Allocations[0].ID

	_, err = f.payments.VoidPayment(f.ctx, paymentdomain.VoidPaymentRequest{ID: pay.ID})
	assert.ErrorIs(t, err, paymentdomain.ErrHasAllocations)

	pay, err = f.payments.VoidAllocation(f.ctx, paymentdomain.VoidAllocationRequest{ID: allocationID})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusPending, pay.Status)
	assert.True(t, pay.UnallocatedAmount.Equal(amt("150.00")))
	assertConsistent(t, pay)

	got := f.invoice(t, inv.ID)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, got.Status)
	assert.True(t, got.BalanceDue.Equal(amt("200.00")))

	_, err = f.payments.VoidAllocation(f.ctx, paymentdomain.VoidAllocationRequest{ID: allocationID})
	assert.ErrorIs(t, err, paymentdomain.ErrAllocationVoided)
	_, err = f.payments.VoidAllocation(f.ctx, paymentdomain.VoidAllocationRequest{ID: 999})
	assert.ErrorIs(t, err, paymentdomain.ErrAllocationNotFound)

	all, err := f.payments.ListAllocations(f.ctx, paymentdomain.ListAllocationRequest{InvoiceID: inv.ID, IncludeVoided: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsVoided)
	require.NotNil(t, all[0].VoidedBy)
	assert.Equal(t, "user-1", *all[0].VoidedBy)

	// The invoice can be allocated again once the old allocation is voided.
	pay, err = f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   pay.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("100.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusPartiallyAllocated, pay.Status)
	assertConsistent(t, pay)
}

func TestClearAndVoidPayment(t *testing.T) {
	f := newFixture(t)
	pay := f.newPayment(t, "PAY-001", "50.00")

	cleared, err := f.payments.ClearPayment(f.ctx, paymentdomain.ClearPaymentRequest{ID: pay.ID})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusCleared, cleared.Status)
	require.NotNil(t, cleared.ClearedDate)
	assert.Equal(t, clock.Today(f.clock), *cleared.ClearedDate)

	_, err = f.payments.ClearPayment(f.ctx, paymentdomain.ClearPaymentRequest{ID: pay.ID})
	assert.ErrorIs(t, err, paymentdomain.ErrAlreadyCleared)

	voided, err := f.payments.VoidPayment(f.ctx, paymentdomain.VoidPaymentRequest{ID: pay.ID, Reason: "bounced"})
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PaymentStatusVoided, voided.Status)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, "bounced", *voided.VoidReason)

	_, err = f.payments.VoidPayment(f.ctx, paymentdomain.VoidPaymentRequest{ID: pay.ID})
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentVoided)
	_, err = f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   pay.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: 1, Amount: amt("1.00")}},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentVoided)

	allocated := f.newPayment(t, "PAY-002", "30.00")
	inv := f.sentInvoice(t, "INV-9", f.customer.ID, "100.00")
	_, err = f.payments.Allocate(f.ctx, paymentdomain.AllocateRequest{
		PaymentID:   allocated.ID,
		Allocations: []paymentdomain.AllocationInput{{InvoiceID: inv.ID, Amount: amt("30.00")}},
	})
	require.NoError(t, err)
	cleared, err = f.payments.ClearPayment(f.ctx, paymentdomain.ClearPaymentRequest{ID: allocated.ID})
	require.NoError(t, err)
	assert.True(t, cleared.IsCleared)
	assert.Equal(t, paymentdomain.PaymentStatusAllocated, cleared.Status)
}

func TestPaymentReceiptJournalIsReversedOnVoid(t *testing.T) {
	f := newFixture(t)

	pay, err := f.payments.CreatePayment(f.ctx, paymentdomain.CreatePaymentRequest{
		CustomerID:          f.customer.ID,
		PaymentDate:         f.clock.Now(),
		PaymentMethod:       paymentdomain.PaymentMethodBankTransfer,
		Amount:              amt("150.00"),
		DepositAccountID:    &f.cash.ID,
		ReceivableAccountID: &f.receivable.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, pay.JournalEntryID)

	entry, err := f.ledger.GetEntry(f.ctx, *pay.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusPosted, entry.Status)
	assert.Equal(t, pay.PaymentNumber, entry.Reference)
	assert.True(t, entry.TotalDebit.Equal(amt("150.00")))

	cash, err := f.accounts.GetAccount(f.ctx, f.cash.ID)
	require.NoError(t, err)
	assert.True(t, cash.CurrentBalance.Equal(amt("150.00")))
	ar, err := f.accounts.GetAccount(f.ctx, f.receivable.ID)
	require.NoError(t, err)
	assert.True(t, ar.CurrentBalance.Equal(amt("-150.00")))

	_, err = f.payments.VoidPayment(f.ctx, paymentdomain.VoidPaymentRequest{ID: pay.ID})
	require.NoError(t, err)

	entry, err = f.ledger.GetEntry(f.ctx, *pay.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.EntryStatusReversed, entry.Status)
	cash, err = f.accounts.GetAccount(f.ctx, f.cash.ID)
	require.NoError(t, err)
	assert.True(t, cash.CurrentBalance.IsZero())
	ar, err = f.accounts.GetAccount(f.ctx, f.receivable.ID)
	require.NoError(t, err)
	assert.True(t, ar.CurrentBalance.IsZero())
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	f.newPayment(t, "", "10.00")
	second := f.newPayment(t, "", "20.00")
	_, err := f.payments.ClearPayment(f.ctx, paymentdomain.ClearPaymentRequest{ID: second.ID})
	require.NoError(t, err)

	all, err := f.payments.ListPayments(f.ctx, paymentdomain.ListPaymentRequest{CustomerID: f.customer.ID})
	require.NoError(t, err)
	assert.Len(t, all.Payments, 2)

	cleared, err := f.payments.ListPayments(f.ctx, paymentdomain.ListPaymentRequest{Status: paymentdomain.PaymentStatusCleared})
	require.NoError(t, err)
	require.Len(t, cleared.Payments, 1)
	assert.Equal(t, "PAY-000002", cleared.Payments[0].PaymentNumber)

	_, err = f.payments.GetPayment(f.ctx, 31337)
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)
}
