package inventory

import (
	"context"
	"time"
)

// Metric names emitted after a successful report commit.
const (
	MetricInventoryLevel = "inventory_level"
	MetricProductOfftake = "product_offtake"
)

// Metric is one observation handed to the analytics collaborator.
type Metric struct {
	Name      string
	Value     float64
	BranchID  *int64
	ProductID *int64
	At        time.Time
}

// MetricEmitter receives post-commit metrics. Emission is fire-and-forget:
// failures are logged by the service, never surfaced to the caller.
type MetricEmitter interface {
	Emit(ctx context.Context, m Metric) error
}
