package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/config"
	customerdomain "github.com/smallbiznis/bookkeeping/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/bookkeeping/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/bookkeeping/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/bookkeeping/internal/ledger/service"
	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	reportdomain "github.com/smallbiznis/bookkeeping/internal/report/domain"
	"github.com/smallbiznis/bookkeeping/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Config       config.Config
	ReportConfig *config.ReportConfigHolder
	Accounts     accountdomain.Repository
	Ledger       ledgerdomain.Repository
	Invoices     invoicedomain.Repository
	Customers    customerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	snapshot     bool
	reportConfig *config.ReportConfigHolder
	accounts     accountdomain.Repository
	ledger       ledgerdomain.Repository
	invoices     invoicedomain.Repository
	customers    customerdomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("report.service"),
		clock:        p.Clock,
		snapshot:     p.Config.ReportSnapshotIsolation,
		reportConfig: p.ReportConfig,
		accounts:     p.Accounts,
		ledger:       p.Ledger,
		invoices:     p.Invoices,
		customers:    p.Customers,
	}
}

var _ reportdomain.Service = (*Service)(nil)

// read runs fn in one transaction so every query of a report sees the same
// data. Postgres and MySQL get a read-only repeatable-read snapshot.
func (s *Service) read(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if s.snapshot {
		switch s.db.Dialector.Name() {
		case "postgres", "mysql":
			opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
		}
	}
	return s.db.WithContext(ctx).Transaction(fn, opts...)
}

func (s *Service) TrialBalance(ctx context.Context, req reportdomain.TrialBalanceRequest) (*reportdomain.TrialBalance, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidScope
	}
	asOf := datePtr(req.AsOf)

	report := &reportdomain.TrialBalance{
		AsOf:        asOf,
		Lines:       []reportdomain.TrialBalanceLine{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	err := s.read(ctx, func(tx *gorm.DB) error {
		accounts, err := s.accounts.List(ctx, tx, scope, accountdomain.ListFilter{
			IsActive: boolPtr(true),
			IsHeader: boolPtr(false),
		})
		if err != nil {
			return err
		}
		balances, err := s.balances(ctx, tx, scope, accounts, asOf)
		if err != nil {
			return err
		}

		for _, account := range accounts {
			balance := balances[account.ID]
			line := reportdomain.TrialBalanceLine{
				AccountID:   account.ID,
				AccountCode: account.Code,
				AccountName: account.Name,
				AccountType: account.Type,
				Debit:       decimal.Zero,
				Credit:      decimal.Zero,
			}
			// A negative balance sits on the side opposite the normal one.
			debitSide := account.Type.DebitNormal() == !balance.IsNegative()
			if debitSide {
				line.Debit = balance.Abs()
			} else {
				line.Credit = balance.Abs()
			}
			report.TotalDebit = report.TotalDebit.Add(line.Debit)
			report.TotalCredit = report.TotalCredit.Add(line.Credit)
			report.Lines = append(report.Lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.IsBalanced = report.TotalDebit.Equal(report.TotalCredit)
	if !report.IsBalanced {
		s.log.Warn("trial balance out of balance",
			zap.String("tenant_id", scope.TenantID),
			zap.String("company_id", scope.CompanyID),
			zap.String("total_debit", report.TotalDebit.StringFixed(2)),
			zap.String("total_credit", report.TotalCredit.StringFixed(2)),
		)
	}
	return report, nil
}

func (s *Service) BalanceSheet(ctx context.Context, req reportdomain.BalanceSheetRequest) (*reportdomain.BalanceSheet, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidScope
	}
	asOf := datePtr(req.AsOf)

	report := &reportdomain.BalanceSheet{
		AsOf:            asOf,
		Assets:          emptySection(),
		Liabilities:     emptySection(),
		Equity:          emptySection(),
		CurrentEarnings: decimal.Zero,
	}
	err := s.read(ctx, func(tx *gorm.DB) error {
		// Inactive accounts still count: deactivation does not erase a balance.
		accounts, err := s.accounts.List(ctx, tx, scope, accountdomain.ListFilter{IsHeader: boolPtr(false)})
		if err != nil {
			return err
		}
		balances, err := s.balances(ctx, tx, scope, accounts, asOf)
		if err != nil {
			return err
		}

		for _, account := range accounts {
			balance := balances[account.ID]
			switch account.Type {
			case accountdomain.AccountTypeAsset:
				report.Assets.Add(account.ID, account.Code, account.Name, balance)
			case accountdomain.AccountTypeLiability:
				report.Liabilities.Add(account.ID, account.Code, account.Name, balance)
			case accountdomain.AccountTypeEquity:
				report.Equity.Add(account.ID, account.Code, account.Name, balance)
			case accountdomain.AccountTypeRevenue:
				report.CurrentEarnings = report.CurrentEarnings.Add(balance)
			case accountdomain.AccountTypeExpense:
				report.CurrentEarnings = report.CurrentEarnings.Sub(balance)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.TotalLiabilitiesAndEquity = report.Liabilities.Total.
		Add(report.Equity.Total).
		Add(report.CurrentEarnings)
	report.IsBalanced = report.Assets.Total.Equal(report.TotalLiabilitiesAndEquity)
	return report, nil
}

// IncomeStatement sums revenue and expense activity posted inside the
// period. A nil bound leaves that side open.
func (s *Service) IncomeStatement(ctx context.Context, req reportdomain.IncomeStatementRequest) (*reportdomain.IncomeStatement, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidScope
	}
	from, to := datePtr(req.From), datePtr(req.To)
	if from != nil && to != nil && from.After(*to) {
		return nil, reportdomain.ErrInvalidDateRange
	}

	report := &reportdomain.IncomeStatement{
		From:     from,
		To:       to,
		Revenue:  emptySection(),
		Expenses: emptySection(),
	}
	err := s.read(ctx, func(tx *gorm.DB) error {
		accounts, err := s.accounts.List(ctx, tx, scope, accountdomain.ListFilter{IsHeader: boolPtr(false)})
		if err != nil {
			return err
		}
		var nominal []accountdomain.Account
		ids := make([]snowflake.ID, 0, len(accounts))
		for _, account := range accounts {
			if account.Type == accountdomain.AccountTypeRevenue || account.Type == accountdomain.AccountTypeExpense {
				nominal = append(nominal, account)
				ids = append(ids, account.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		lines, err := s.ledger.ListPostedLines(ctx, tx, scope, ledgerdomain.PostedLineFilter{
			AccountIDs: ids,
			From:       from,
			To:         to,
		})
		if err != nil {
			return err
		}
		net := make(map[snowflake.ID]decimal.Decimal, len(ids))
		for _, line := range lines {
			net[line.AccountID] = net[line.AccountID].Add(line.Net())
		}

		for _, account := range nominal {
			activity := accountdomain.CalculateBalance(account.Type, net[account.ID], decimal.Zero)
			if activity.IsZero() {
				continue
			}
			if account.Type == accountdomain.AccountTypeRevenue {
				report.Revenue.Add(account.ID, account.Code, account.Name, activity)
			} else {
				report.Expenses.Add(account.ID, account.Code, account.Name, activity)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.NetIncome = report.Revenue.Total.Sub(report.Expenses.Total)
	return report, nil
}

func (s *Service) AgedReceivables(ctx context.Context, req reportdomain.AgedReceivablesRequest) (*reportdomain.AgedReceivables, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidScope
	}
	asOf := clock.Today(s.clock)
	if !req.AsOf.IsZero() {
		asOf = clock.Date(req.AsOf)
	}

	buckets := s.reportConfig.Get().AgingBuckets
	report := &reportdomain.AgedReceivables{
		AsOf:      asOf,
		Buckets:   make([]string, len(buckets)),
		Customers: []reportdomain.CustomerAging{},
		Totals:    zeros(len(buckets)),
		Total:     decimal.Zero,
	}
	for i, b := range buckets {
		report.Buckets[i] = b.Label
	}

	err := s.read(ctx, func(tx *gorm.DB) error {
		invoices, err := s.invoices.ListReceivables(ctx, tx, scope)
		if err != nil {
			return err
		}

		index := make(map[snowflake.ID]int)
		var customerIDs []snowflake.ID
		for _, invoice := range invoices {
			if !invoice.BalanceDue.IsPositive() {
				continue
			}
			pos, seen := index[invoice.CustomerID]
			if !seen {
				pos = len(report.Customers)
				index[invoice.CustomerID] = pos
				customerIDs = append(customerIDs, invoice.CustomerID)
				report.Customers = append(report.Customers, reportdomain.CustomerAging{
					CustomerID: invoice.CustomerID,
					Buckets:    zeros(len(buckets)),
					Total:      decimal.Zero,
					Invoices:   []reportdomain.AgedInvoice{},
				})
			}

			days := daysPastDue(asOf, invoice.DueDate)
			bucket := bucketFor(buckets, days)
			row := &report.Customers[pos]
			row.Invoices = append(row.Invoices, reportdomain.AgedInvoice{
				InvoiceID:     invoice.ID,
				InvoiceNumber: invoice.InvoiceNumber,
				DueDate:       invoice.DueDate,
				DaysPastDue:   days,
				Bucket:        buckets[bucket].Label,
				BalanceDue:    invoice.BalanceDue,
			})
			row.Buckets[bucket] = row.Buckets[bucket].Add(invoice.BalanceDue)
			row.Total = row.Total.Add(invoice.BalanceDue)
			report.Totals[bucket] = report.Totals[bucket].Add(invoice.BalanceDue)
			report.Total = report.Total.Add(invoice.BalanceDue)
		}
		if len(customerIDs) == 0 {
			return nil
		}

		customers, err := s.customers.FindByIDs(ctx, tx, scope, customerIDs)
		if err != nil {
			return err
		}
		for _, c := range customers {
			if pos, ok := index[c.ID]; ok {
				report.Customers[pos].CustomerCode = c.Code
				report.Customers[pos].CustomerName = c.Name
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// CashFlow reports the movement through cash accounts over an inclusive
// date range. Debits are inflows and credits outflows.
func (s *Service) CashFlow(ctx context.Context, req reportdomain.CashFlowRequest) (*reportdomain.CashFlow, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidScope
	}
	if req.From.IsZero() || req.To.IsZero() {
		return nil, reportdomain.ErrInvalidDateRange
	}
	from, to := clock.Date(req.From), clock.Date(req.To)
	if from.After(to) {
		return nil, reportdomain.ErrInvalidDateRange
	}

	report := &reportdomain.CashFlow{
		From:           from,
		To:             to,
		Accounts:       []reportdomain.CashAccountFlow{},
		OpeningBalance: decimal.Zero,
		Inflows:        decimal.Zero,
		Outflows:       decimal.Zero,
	}
	err := s.read(ctx, func(tx *gorm.DB) error {
		accounts, err := s.accounts.List(ctx, tx, scope, accountdomain.ListFilter{
			IsHeader: boolPtr(false),
			IsCash:   boolPtr(true),
		})
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			return nil
		}
		ids := make([]snowflake.ID, len(accounts))
		flows := make(map[snowflake.ID]*reportdomain.CashAccountFlow, len(accounts))
		for i, account := range accounts {
			ids[i] = account.ID
			flows[account.ID] = &reportdomain.CashAccountFlow{
				AccountID:      account.ID,
				AccountCode:    account.Code,
				AccountName:    account.Name,
				OpeningBalance: decimal.Zero,
				Inflows:        decimal.Zero,
				Outflows:       decimal.Zero,
			}
		}

		lines, err := s.ledger.ListPostedLines(ctx, tx, scope, ledgerdomain.PostedLineFilter{
			AccountIDs: ids,
			To:         &to,
		})
		if err != nil {
			return err
		}
		for _, line := range lines {
			flow := flows[line.AccountID]
			if flow == nil {
				continue
			}
			if line.EntryDate.Before(from) {
				flow.OpeningBalance = flow.OpeningBalance.Add(line.Net())
				continue
			}
			flow.Inflows = flow.Inflows.Add(line.DebitAmount)
			flow.Outflows = flow.Outflows.Add(line.CreditAmount)
		}

		for _, account := range accounts {
			flow := flows[account.ID]
			flow.ClosingBalance = flow.OpeningBalance.Add(flow.Inflows).Sub(flow.Outflows)
			report.OpeningBalance = report.OpeningBalance.Add(flow.OpeningBalance)
			report.Inflows = report.Inflows.Add(flow.Inflows)
			report.Outflows = report.Outflows.Add(flow.Outflows)
			report.Accounts = append(report.Accounts, *flow)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.NetChange = report.Inflows.Sub(report.Outflows)
	report.ClosingBalance = report.OpeningBalance.Add(report.NetChange)
	return report, nil
}

func (s *Service) AccountLedger(ctx context.Context, req reportdomain.AccountLedgerRequest) (*reportdomain.AccountLedger, error) {
	scope, ok := orgcontext.ScopeFromContext(ctx)
	if !ok {
		return nil, reportdomain.ErrInvalidScope
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	from, to := datePtr(req.From), datePtr(req.To)
	if from != nil && to != nil && from.After(*to) {
		return nil, reportdomain.ErrInvalidDateRange
	}

	var report *reportdomain.AccountLedger
	err := s.read(ctx, func(tx *gorm.DB) error {
		account, err := s.accounts.FindByID(ctx, tx, scope, req.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("%w: %s", reportdomain.ErrAccountNotFound, req.AccountID)
		}
		lines, err := s.ledger.ListPostedLines(ctx, tx, scope, ledgerdomain.PostedLineFilter{
			AccountIDs: []snowflake.ID{account.ID},
			To:         to,
		})
		if err != nil {
			return err
		}

		replayed := ledgerservice.Replay(account.ID, lines, from)
		sign := normalSign(account.Type)
		report = &reportdomain.AccountLedger{
			AccountID:      account.ID,
			AccountCode:    account.Code,
			AccountName:    account.Name,
			AccountType:    account.Type,
			From:           from,
			To:             to,
			OpeningBalance: replayed.OpeningBalance.Mul(sign),
			Lines:          make([]reportdomain.LedgerLine, 0, len(replayed.Transactions)),
			ClosingBalance: replayed.ClosingBalance.Mul(sign),
		}
		for _, t := range replayed.Transactions {
			report.Lines = append(report.Lines, reportdomain.LedgerLine{
				EntryID:        t.EntryID,
				EntryNumber:    t.EntryNumber,
				EntryDate:      t.EntryDate,
				Description:    t.Description,
				DebitAmount:    t.DebitAmount,
				CreditAmount:   t.CreditAmount,
				RunningBalance: t.RunningBalance.Mul(sign),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// balances returns normal-side balances. Without asOf the stored running
// balances are used; otherwise they are rebuilt from posted lines.
func (s *Service) balances(ctx context.Context, tx *gorm.DB, scope orgcontext.Scope, accounts []accountdomain.Account, asOf *time.Time) (map[snowflake.ID]decimal.Decimal, error) {
	out := make(map[snowflake.ID]decimal.Decimal, len(accounts))
	if asOf == nil {
		for _, account := range accounts {
			out[account.ID] = account.CurrentBalance
		}
		return out, nil
	}
	if len(accounts) == 0 {
		return out, nil
	}

	ids := make([]snowflake.ID, len(accounts))
	for i, account := range accounts {
		ids[i] = account.ID
	}
	lines, err := s.ledger.ListPostedLines(ctx, tx, scope, ledgerdomain.PostedLineFilter{
		AccountIDs: ids,
		To:         asOf,
	})
	if err != nil {
		return nil, err
	}
	debits := make(map[snowflake.ID]decimal.Decimal, len(accounts))
	credits := make(map[snowflake.ID]decimal.Decimal, len(accounts))
	for _, line := range lines {
		debits[line.AccountID] = debits[line.AccountID].Add(line.DebitAmount)
		credits[line.AccountID] = credits[line.AccountID].Add(line.CreditAmount)
	}
	for _, account := range accounts {
		out[account.ID] = accountdomain.CalculateBalance(account.Type, debits[account.ID], credits[account.ID])
	}
	return out, nil
}
