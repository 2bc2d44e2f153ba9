package service

import (
	"time"

	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/bookkeeping/internal/account/domain"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/config"
	reportdomain "github.com/smallbiznis/bookkeeping/internal/report/domain"
)

func emptySection() reportdomain.Section {
	return reportdomain.Section{Accounts: []reportdomain.AccountBalance{}, Total: decimal.Zero}
}

func boolPtr(v bool) *bool { return &v }

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := clock.Date(*t)
	return &d
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}

// normalSign flips debit-minus-credit amounts onto the account's normal side.
func normalSign(t accountdomain.AccountType) decimal.Decimal {
	if t.DebitNormal() {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// daysPastDue counts whole days from the due date to asOf. Zero means due
// today; negative means not yet due.
func daysPastDue(asOf, due time.Time) int {
	return int(clock.Date(asOf).Sub(clock.Date(due)).Hours() / 24)
}

// bucketFor returns the index of the bucket holding days. Invoices not yet
// due age as current.
func bucketFor(buckets []config.AgingBucket, days int) int {
	if days < 0 {
		days = 0
	}
	for i, b := range buckets {
		if b.Contains(days) {
			return i
		}
	}
	return len(buckets) - 1
}
