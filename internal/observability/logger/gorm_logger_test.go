package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/bookkeeping/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("  select * from accounts"))
	assert.Equal(t, "UPDATE", operationFromSQL("WITH x AS (SELECT 1) UPDATE accounts SET version = 2"))
	assert.Equal(t, "DELETE", operationFromSQL("with a as (select id from invoices), b as (select 2) delete from invoices"))
	assert.Equal(t, "INSERT", operationFromSQL("INSERT INTO audit_logs (id) SELECT id FROM accounts"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestGormLoggerTraceLogsErrorsWithScope(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())

	ctx := orgcontext.WithScope(context.Background(), "t1", "c1")
	l.Trace(ctx, time.Now(), func() (string, int64) {
		return "INSERT INTO accounts (code) VALUES (?)", 0
	}, errors.New("UNIQUE constraint failed"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		fields := entries[0].ContextMap()
		assert.Equal(t, "INSERT", fields["operation"])
		assert.Equal(t, "t1", fields["tenant_id"])
		assert.Equal(t, "c1", fields["company_id"])
	}
}

func TestGormLoggerSilentMode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig()).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, errors.New("boom"))
	assert.Empty(t, logs.All())
}
