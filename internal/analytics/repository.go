package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botica-erp/botica-erp/internal/inventory"
)

// Repository runs the aggregation queries behind the dashboards. Sales
// figures come from report items priced at their frozen cost and SRP, so
// later price edits never rewrite past revenue.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) SalesSummary(ctx context.Context, from, to time.Time, branchID int64) (float64, float64, error) {
	var revenue, cost float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(i.offtake * i.current_srp), 0),
		       COALESCE(SUM(i.offtake * i.current_cost), 0)
		FROM invreport_items i
		JOIN invreports r ON r.id = i.invreport_id
		WHERE r.created_at >= $1 AND r.created_at <= $2
		  AND ($3::bigint = 0 OR r.branch_id = $3)`,
		from, to, branchID).Scan(&revenue, &cost)
	return revenue, cost, err
}

func (r *Repository) RevenueByDay(ctx context.Context, from, to time.Time, branchID int64) ([]TimePoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', r.created_at) AS day,
		       COALESCE(SUM(i.offtake * i.current_srp), 0)
		FROM invreport_items i
		JOIN invreports r ON r.id = i.invreport_id
		WHERE r.created_at >= $1 AND r.created_at <= $2
		  AND ($3::bigint = 0 OR r.branch_id = $3)
		GROUP BY day
		ORDER BY day`, from, to, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPoints(rows)
}

func (r *Repository) ExpenseTotal(ctx context.Context, from, to time.Time, branchID int64) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE spent_at >= $1 AND spent_at <= $2
		  AND ($3::bigint = 0 OR branch_id = $3)`,
		from, to, branchID).Scan(&total)
	return total, err
}

func (r *Repository) ExpensesByDay(ctx context.Context, from, to time.Time, branchID int64) ([]TimePoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc('day', spent_at) AS day, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE spent_at >= $1 AND spent_at <= $2
		  AND ($3::bigint = 0 OR branch_id = $3)
		GROUP BY day
		ORDER BY day`, from, to, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPoints(rows)
}

type pointRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPoints(rows pointRows) ([]TimePoint, error) {
	var out []TimePoint
	for rows.Next() {
		var p TimePoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT i.product_id, p.name,
		       COALESCE(SUM(i.offtake), 0),
		       COALESCE(SUM(i.offtake * i.current_srp), 0) AS revenue
		FROM invreport_items i
		JOIN invreports r ON r.id = i.invreport_id
		JOIN products p ON p.id = i.product_id
		WHERE r.created_at >= $1 AND r.created_at <= $2
		GROUP BY i.product_id, p.name
		HAVING SUM(i.offtake) > 0
		ORDER BY revenue DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) BranchPerformance(ctx context.Context, from, to time.Time) ([]BranchPerformance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.name,
		       COALESCE(SUM(i.offtake * i.current_srp), 0) AS revenue,
		       COALESCE(SUM(i.offtake * i.current_cost), 0) AS cost
		FROM branches b
		LEFT JOIN invreports r
			ON r.branch_id = b.id AND r.created_at >= $1 AND r.created_at <= $2
		LEFT JOIN invreport_items i ON i.invreport_id = r.id
		GROUP BY b.id, b.name
		ORDER BY revenue DESC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BranchPerformance
	for rows.Next() {
		var p BranchPerformance
		if err := rows.Scan(&p.BranchID, &p.BranchName, &p.Revenue, &p.Cost); err != nil {
			return nil, err
		}
		p.Profit = p.Revenue - p.Cost
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertMetric appends one timeseries point.
func (r *Repository) InsertMetric(ctx context.Context, m inventory.Metric) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analytics_timeseries (metric, value, branch_id, product_id, recorded_at)
		VALUES ($1,$2,$3,$4,$5)`,
		m.Name, m.Value, m.BranchID, m.ProductID, m.At)
	return err
}

// MetricPoints reads raw timeseries points back, mainly for debugging feeds.
func (r *Repository) MetricPoints(ctx context.Context, name string, branchID int64, from, to time.Time) ([]TimePoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT recorded_at, value FROM analytics_timeseries
		WHERE metric = $1
		  AND ($2::bigint = 0 OR branch_id = $2)
		  AND recorded_at >= $3 AND recorded_at <= $4
		ORDER BY recorded_at`, name, branchID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPoints(rows)
}
