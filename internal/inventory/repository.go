package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botica-erp/botica-erp/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations the report processor
// and batch ledger use.
type TxRepository interface {
	GetBranch(ctx context.Context, id int64) (Branch, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListActiveBatchesForUpdate(ctx context.Context, branchID, productID int64) ([]StockBatch, error)
	InsertBatch(ctx context.Context, b StockBatch) (int64, error)
	UpdateBatch(ctx context.Context, id int64, quantity int, active bool) error
	GetStockForUpdate(ctx context.Context, branchID, productID int64) (BranchStock, error)
	UpsertStock(ctx context.Context, s BranchStock) error
	InsertReport(ctx context.Context, r Report) (int64, error)
	InsertReportItem(ctx context.Context, item ReportItem) (int64, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

const txMaxAttempts = 3

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization failures and deadlocks are retried from scratch, which is
// safe because every mutation happens inside the callback.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	var err error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		err = r.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return err
}

func (r *Repository) runTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func (r *txRepository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := r.tx.QueryRow(ctx, `SELECT id, name, branch_type, is_active FROM branches WHERE id=$1`, id).
		Scan(&b.ID, &b.Name, &b.Type, &b.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branch{}, ErrBranchNotFound
		}
		return Branch{}, err
	}
	return b, nil
}

func (r *txRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.tx.QueryRow(ctx, `SELECT id, name, cost, srp, retail_low_stock_threshold, wholesale_low_stock_threshold, is_retail_available, is_wholesale_available
FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Cost, &p.SRP, &p.RetailThreshold, &p.WholesaleThreshold, &p.IsRetailAvailable, &p.IsWholesaleAvail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *txRepository) ListActiveBatchesForUpdate(ctx context.Context, branchID, productID int64) ([]StockBatch, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, branch_id, product_id, quantity, expiration_date, is_active, created_at
FROM stock_batches
WHERE branch_id=$1 AND product_id=$2 AND is_active
ORDER BY expiration_date ASC, id ASC
FOR UPDATE`, branchID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []StockBatch
	for rows.Next() {
		var b StockBatch
		if err := rows.Scan(&b.ID, &b.BranchID, &b.ProductID, &b.Quantity, &b.ExpirationDate, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *txRepository) InsertBatch(ctx context.Context, b StockBatch) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_batches (branch_id, product_id, quantity, expiration_date, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		b.BranchID, b.ProductID, b.Quantity, b.ExpirationDate, b.IsActive, b.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateBatch(ctx context.Context, id int64, quantity int, active bool) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_batches SET quantity=$2, is_active=$3 WHERE id=$1`, id, quantity, active)
	return err
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, branchID, productID int64) (BranchStock, error) {
	var s BranchStock
	err := r.tx.QueryRow(ctx, `SELECT branch_id, product_id, quantity, is_available, low_stock_since
FROM branch_products WHERE branch_id=$1 AND product_id=$2 FOR UPDATE`, branchID, productID).
		Scan(&s.BranchID, &s.ProductID, &s.Quantity, &s.IsAvailable, &s.LowStockSince)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BranchStock{BranchID: branchID, ProductID: productID}, nil
		}
		return BranchStock{}, err
	}
	return s, nil
}

func (r *txRepository) UpsertStock(ctx context.Context, s BranchStock) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO branch_products (branch_id, product_id, quantity, is_available, low_stock_since)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (branch_id, product_id) DO UPDATE SET quantity=EXCLUDED.quantity, is_available=EXCLUDED.is_available, low_stock_since=EXCLUDED.low_stock_since`,
		s.BranchID, s.ProductID, s.Quantity, s.IsAvailable, s.LowStockSince)
	return err
}

func (r *txRepository) InsertReport(ctx context.Context, rep Report) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invreports (branch_id, created_at, start_date, end_date)
VALUES ($1,$2,$3,$4) RETURNING id`, rep.BranchID, rep.CreatedAt, rep.StartDate, rep.EndDate).Scan(&id)
	return id, err
}

func (r *txRepository) InsertReportItem(ctx context.Context, item ReportItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invreport_items (invreport_id, product_id, beginning, selling_area, offtake, current_cost, current_srp)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		item.ReportID, item.ProductID, item.Beginning, item.SellingArea, item.Offtake, item.CurrentCost, item.CurrentSRP).Scan(&id)
	return id, err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invreport_movements (item_id, movement_type, quantity, expiration_date)
VALUES ($1,$2,$3,$4) RETURNING id`, m.ItemID, string(m.Type), m.Quantity, m.ExpirationDate).Scan(&id)
	return id, err
}

// GetReport loads one report with items and movements.
func (r *Repository) GetReport(ctx context.Context, id int64) (Report, error) {
	var rep Report
	err := r.pool.QueryRow(ctx, `SELECT id, branch_id, created_at, start_date, end_date, viewed_by FROM invreports WHERE id=$1`, id).
		Scan(&rep.ID, &rep.BranchID, &rep.CreatedAt, &rep.StartDate, &rep.EndDate, &rep.ViewedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, ErrReportNotFound
		}
		return Report{}, err
	}
	items, err := r.loadItems(ctx, []int64{id})
	if err != nil {
		return Report{}, err
	}
	rep.Items = items[id]
	return rep, nil
}

// ListReports lists report shells with items, newest first.
func (r *Repository) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, branch_id, created_at, start_date, end_date, viewed_by
FROM invreports
WHERE ($1::BIGINT = 0 OR branch_id=$1)
ORDER BY created_at DESC, id DESC
OFFSET $2 LIMIT $3`, filter.BranchID, filter.Offset, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reports := []Report{}
	var ids []int64
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.BranchID, &rep.CreatedAt, &rep.StartDate, &rep.EndDate, &rep.ViewedBy); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
		ids = append(ids, rep.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return reports, nil
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		reports[i].Items = items[reports[i].ID]
	}
	return reports, nil
}

func (r *Repository) loadItems(ctx context.Context, reportIDs []int64) (map[int64][]ReportItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invreport_id, product_id, beginning, selling_area, offtake, current_cost, current_srp
FROM invreport_items WHERE invreport_id = ANY($1) ORDER BY id ASC`, reportIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make(map[int64][]ReportItem)
	var itemIDs []int64
	index := make(map[int64]*ReportItem)
	for rows.Next() {
		var item ReportItem
		if err := rows.Scan(&item.ID, &item.ReportID, &item.ProductID, &item.Beginning, &item.SellingArea, &item.Offtake, &item.CurrentCost, &item.CurrentSRP); err != nil {
			return nil, err
		}
		items[item.ReportID] = append(items[item.ReportID], item)
		itemIDs = append(itemIDs, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for reportID := range items {
		for i := range items[reportID] {
			index[items[reportID][i].ID] = &items[reportID][i]
		}
	}
	if len(itemIDs) == 0 {
		return items, nil
	}
	moveRows, err := r.pool.Query(ctx, `SELECT id, item_id, movement_type, quantity, expiration_date
FROM invreport_movements WHERE item_id = ANY($1) ORDER BY id ASC`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer moveRows.Close()
	for moveRows.Next() {
		var m Movement
		if err := moveRows.Scan(&m.ID, &m.ItemID, &m.Type, &m.Quantity, &m.ExpirationDate); err != nil {
			return nil, err
		}
		if item, ok := index[m.ItemID]; ok {
			item.Movements = append(item.Movements, m)
		}
	}
	return items, moveRows.Err()
}

// AcknowledgeReport records the first admin to view the report. A second
// viewer does not overwrite the first.
func (r *Repository) AcknowledgeReport(ctx context.Context, reportID, adminID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invreports SET viewed_by=$2 WHERE id=$1 AND viewed_by IS NULL`, reportID, adminID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM invreports WHERE id=$1)`, reportID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrReportNotFound
		}
	}
	return nil
}

// ListExpiringBatches returns a branch's active batches expiring on or before
// the horizon, plus a product-name lookup for display.
func (r *Repository) ListExpiringBatches(ctx context.Context, branchID int64, horizon time.Time) ([]StockBatch, map[int64]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.id, b.branch_id, b.product_id, b.quantity, b.expiration_date, b.is_active, b.created_at, p.name
FROM stock_batches b
JOIN products p ON p.id = b.product_id
WHERE b.branch_id=$1 AND b.is_active AND b.quantity > 0 AND b.expiration_date <= $2
ORDER BY b.expiration_date ASC, b.id ASC`, branchID, horizon)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var batches []StockBatch
	names := make(map[int64]string)
	for rows.Next() {
		var b StockBatch
		var name string
		if err := rows.Scan(&b.ID, &b.BranchID, &b.ProductID, &b.Quantity, &b.ExpirationDate, &b.IsActive, &b.CreatedAt, &name); err != nil {
			return nil, nil, err
		}
		batches = append(batches, b)
		names[b.ProductID] = name
	}
	return batches, names, rows.Err()
}

// ListStockDetails loads a branch's stock rows joined with the product and
// branch data the low-stock classifier needs.
func (r *Repository) ListStockDetails(ctx context.Context, branchID int64) ([]StockDetail, error) {
	rows, err := r.pool.Query(ctx, `SELECT bp.branch_id, br.branch_type, bp.product_id, p.name, p.cost, bp.quantity, bp.is_available, bp.low_stock_since, p.retail_low_stock_threshold, p.wholesale_low_stock_threshold
FROM branch_products bp
JOIN products p ON p.id = bp.product_id
JOIN branches br ON br.id = bp.branch_id
WHERE bp.branch_id=$1
ORDER BY p.name ASC`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []StockDetail
	for rows.Next() {
		var d StockDetail
		if err := rows.Scan(&d.BranchID, &d.BranchType, &d.ProductID, &d.ProductName, &d.Cost, &d.Quantity, &d.IsAvailable, &d.LowStockSince, &d.RetailThreshold, &d.WholesaleThreshold); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
