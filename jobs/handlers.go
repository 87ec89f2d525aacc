package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/botica-erp/botica-erp/internal/inventory"
	"github.com/botica-erp/botica-erp/internal/masterdata"
	"github.com/botica-erp/botica-erp/internal/observability"
)

// MetricSink receives decoded report metrics; the analytics service
// implements it.
type MetricSink interface {
	RecordMetric(ctx context.Context, m inventory.Metric) error
}

// HandleMetricRecord builds the handler persisting report metrics.
func HandleMetricRecord(sink MetricSink, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MetricPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.ObserveJob(TaskMetricRecord, "malformed")
			return asynq.SkipRetry
		}
		if err := sink.RecordMetric(ctx, payload.Metric()); err != nil {
			metrics.ObserveJob(TaskMetricRecord, "error")
			return err
		}
		metrics.ObserveJob(TaskMetricRecord, "ok")
		return nil
	}
}

// BranchLister supplies active branches for scheduled scans; the masterdata
// repository implements it.
type BranchLister interface {
	ListBranches(ctx context.Context, activeOnly bool) ([]masterdata.Branch, error)
}

// ExpiryScanner supplies the expiring lots per branch; the inventory service
// implements it.
type ExpiryScanner interface {
	ExpiringBatches(ctx context.Context, branchID int64, days int) ([]inventory.ExpiringBatch, map[inventory.ExpiryTier]inventory.TierSummary, error)
}

// HandleExpiryScan builds the nightly scan handler. It only reports; nothing
// is mutated, pharmacists act on the logged summary.
func HandleExpiryScan(branches BranchLister, scanner ExpiryScanner, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ExpiryScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.ObserveJob(TaskExpiryScan, "malformed")
			return asynq.SkipRetry
		}
		all, err := branches.ListBranches(ctx, true)
		if err != nil {
			metrics.ObserveJob(TaskExpiryScan, "error")
			return err
		}
		for _, branch := range all {
			lots, summary, err := scanner.ExpiringBatches(ctx, branch.ID, payload.HorizonDays)
			if err != nil {
				metrics.ObserveJob(TaskExpiryScan, "error")
				return err
			}
			expired := summary[inventory.TierExpired]
			critical := summary[inventory.TierCritical]
			if expired.Count == 0 && critical.Count == 0 {
				continue
			}
			logger.Warn("expiring stock",
				slog.Int64("branch_id", branch.ID),
				slog.String("branch", branch.Name),
				slog.Int("lots", len(lots)),
				slog.Int("expired_lots", expired.Count),
				slog.Int("expired_units", expired.Quantity),
				slog.Int("critical_lots", critical.Count),
				slog.Int("critical_units", critical.Quantity))
		}
		metrics.ObserveJob(TaskExpiryScan, "ok")
		return nil
	}
}
