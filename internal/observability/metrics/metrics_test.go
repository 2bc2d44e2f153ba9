package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("event_type", "posted"),
		attribute.String("tenant_id", "456"),
		attribute.String("account_type", "asset"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "event_type" && attrs[1].Key != "event_type" {
		t.Fatalf("expected event_type to be retained")
	}
	if attrs[0].Key != "account_type" && attrs[1].Key != "account_type" {
		t.Fatalf("expected account_type to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordJournalEntry(context.Background(), "posted")
		m.RecordInvoiceEvent(context.Background(), "created")
		m.RecordPaymentEvent(context.Background(), "allocated")
		m.RecordBalanceConflict(context.Background(), "asset")
		m.RecordJobRun(context.Background(), "mark_overdue", "ok", time.Second)
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "bookkeeping"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordJournalEntry(context.Background(), "reversed")
	})
}
