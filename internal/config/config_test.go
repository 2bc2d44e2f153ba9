package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "SQLite")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "7")
	t.Setenv("REPORT_SNAPSHOT_ISOLATION", "off")
	t.Setenv("SNOWFLAKE_NODE", "not-a-number")
	t.Setenv("SCHEDULER_JOBS", " mark_overdue, ,trial_balance_check")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 7, cfg.DBMaxOpenConn)
	assert.False(t, cfg.ReportSnapshotIsolation)
	assert.Equal(t, int64(1), cfg.SnowflakeNode)
	assert.Equal(t, []string{"mark_overdue", "trial_balance_check"}, cfg.SchedulerJobs)
	assert.True(t, cfg.SchedulerEnabled)
}
