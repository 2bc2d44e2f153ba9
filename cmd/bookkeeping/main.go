package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bookkeeping/internal/account"
	"github.com/smallbiznis/bookkeeping/internal/audit"
	"github.com/smallbiznis/bookkeeping/internal/clock"
	"github.com/smallbiznis/bookkeeping/internal/config"
	"github.com/smallbiznis/bookkeeping/internal/customer"
	"github.com/smallbiznis/bookkeeping/internal/invoice"
	"github.com/smallbiznis/bookkeeping/internal/ledger"
	"github.com/smallbiznis/bookkeeping/internal/migration"
	"github.com/smallbiznis/bookkeeping/internal/observability"
	"github.com/smallbiznis/bookkeeping/internal/payment"
	"github.com/smallbiznis/bookkeeping/internal/report"
	"github.com/smallbiznis/bookkeeping/internal/scheduler"
	"github.com/smallbiznis/bookkeeping/internal/sequence"
	"github.com/smallbiznis/bookkeeping/internal/tax"
	"github.com/smallbiznis/bookkeeping/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		sequence.Module,
		audit.Module,

		// Bookkeeping domains
		customer.Module,
		account.Module,
		tax.Module,
		ledger.Module,
		invoice.Module,
		payment.Module,
		report.Module,

		// Background jobs
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
