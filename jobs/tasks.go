package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/botica-erp/botica-erp/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMetricRecord persists one post-commit report metric into the
	// analytics timeseries.
	TaskMetricRecord = "metrics:record"
	// TaskExpiryScan walks every active branch and logs lots nearing
	// expiry; scheduled nightly.
	TaskExpiryScan = "inventory:expiry_scan"
)

// MetricPayload is the wire form of one report metric.
type MetricPayload struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	BranchID  *int64    `json:"branch_id,omitempty"`
	ProductID *int64    `json:"product_id,omitempty"`
	At        time.Time `json:"at"`
}

// Metric converts the payload back to the domain type.
func (p MetricPayload) Metric() inventory.Metric {
	return inventory.Metric{
		Name:      p.Name,
		Value:     p.Value,
		BranchID:  p.BranchID,
		ProductID: p.ProductID,
		At:        p.At,
	}
}

// NewMetricRecordTask constructs the metric-record task.
func NewMetricRecordTask(m inventory.Metric) (*asynq.Task, error) {
	body, err := json.Marshal(MetricPayload{
		Name:      m.Name,
		Value:     m.Value,
		BranchID:  m.BranchID,
		ProductID: m.ProductID,
		At:        m.At,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMetricRecord, body, asynq.Queue(QueueDefault)), nil
}

// ExpiryScanPayload carries scheduling metadata.
type ExpiryScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	HorizonDays  int       `json:"horizon_days"`
}

// NewExpiryScanTask constructs the nightly expiry-scan task.
func NewExpiryScanTask(at time.Time, horizonDays int) (*asynq.Task, error) {
	if horizonDays <= 0 {
		horizonDays = 90
	}
	body, err := json.Marshal(ExpiryScanPayload{ScheduledFor: at, HorizonDays: horizonDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiryScan, body, asynq.Queue(QueueDefault)), nil
}
