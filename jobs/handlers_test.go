package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botica-erp/botica-erp/internal/inventory"
	"github.com/botica-erp/botica-erp/internal/masterdata"
	"github.com/botica-erp/botica-erp/internal/observability"
)

type fakeSink struct {
	metrics []inventory.Metric
}

func (f *fakeSink) RecordMetric(ctx context.Context, m inventory.Metric) error {
	f.metrics = append(f.metrics, m)
	return nil
}

func TestHandleMetricRecordRoundTrip(t *testing.T) {
	branchID, productID := int64(1), int64(10)
	at := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	task, err := NewMetricRecordTask(inventory.Metric{
		Name:      inventory.MetricProductOfftake,
		Value:     25,
		BranchID:  &branchID,
		ProductID: &productID,
		At:        at,
	})
	require.NoError(t, err)
	require.Equal(t, TaskMetricRecord, task.Type())

	sink := &fakeSink{}
	handler := HandleMetricRecord(sink, observability.NewMetrics(), slog.Default())
	require.NoError(t, handler(context.Background(), task))

	require.Len(t, sink.metrics, 1)
	got := sink.metrics[0]
	require.Equal(t, inventory.MetricProductOfftake, got.Name)
	require.Equal(t, 25.0, got.Value)
	require.Equal(t, branchID, *got.BranchID)
	require.Equal(t, productID, *got.ProductID)
	require.True(t, got.At.Equal(at))
}

type fakeBranches struct {
	branches []masterdata.Branch
}

func (f *fakeBranches) ListBranches(ctx context.Context, activeOnly bool) ([]masterdata.Branch, error) {
	return f.branches, nil
}

type fakeScanner struct {
	scanned []int64
}

func (f *fakeScanner) ExpiringBatches(ctx context.Context, branchID int64, days int) ([]inventory.ExpiringBatch, map[inventory.ExpiryTier]inventory.TierSummary, error) {
	f.scanned = append(f.scanned, branchID)
	return []inventory.ExpiringBatch{{ProductID: 10, Quantity: 3, Tier: inventory.TierCritical}},
		map[inventory.ExpiryTier]inventory.TierSummary{
			inventory.TierCritical: {Count: 1, Quantity: 3},
		}, nil
}

func TestHandleExpiryScanWalksBranches(t *testing.T) {
	task, err := NewExpiryScanTask(time.Now(), 0)
	require.NoError(t, err)

	branches := &fakeBranches{branches: []masterdata.Branch{{ID: 1, Name: "Main"}, {ID: 2, Name: "Hub"}}}
	scanner := &fakeScanner{}
	handler := HandleExpiryScan(branches, scanner, observability.NewMetrics(), slog.Default())

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, []int64{1, 2}, scanner.scanned)
}
