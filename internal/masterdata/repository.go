package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// Repository is the Postgres-backed masterdata store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside one transaction with default isolation; masterdata
// writes do not contend the way report processing does.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}

func (t *txRepository) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (name, category, cost, srp,
			retail_low_stock_threshold, wholesale_low_stock_threshold,
			is_retail_available, is_wholesale_available, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		p.Name, p.Category, p.Cost, p.SRP,
		p.RetailThreshold, p.WholesaleThreshold,
		p.IsRetailAvailable, p.IsWholesaleAvail, p.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, translateUnique(err)
	}
	return id, nil
}

func (t *txRepository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products SET name=$2, category=$3, cost=$4, srp=$5,
			retail_low_stock_threshold=$6, wholesale_low_stock_threshold=$7,
			is_retail_available=$8, is_wholesale_available=$9
		WHERE id=$1`,
		p.ID, p.Name, p.Category, p.Cost, p.SRP,
		p.RetailThreshold, p.WholesaleThreshold,
		p.IsRetailAvailable, p.IsWholesaleAvail,
	)
	if err != nil {
		return translateUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (t *txRepository) InsertBranch(ctx context.Context, b Branch) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO branches (name, location, branch_type, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		b.Name, b.Location, b.Type, b.IsActive, b.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, translateUnique(err)
	}
	return id, nil
}

func (t *txRepository) SeedStockForProduct(ctx context.Context, productID int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO branch_products (branch_id, product_id, quantity, is_available)
		SELECT b.id, $1, 0, FALSE FROM branches b WHERE b.is_active
		ON CONFLICT (branch_id, product_id) DO NOTHING`, productID)
	return err
}

func (t *txRepository) SeedStockForBranch(ctx context.Context, branchID int64) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO branch_products (branch_id, product_id, quantity, is_available)
		SELECT $1, p.id, 0, FALSE FROM products p
		ON CONFLICT (branch_id, product_id) DO NOTHING`, branchID)
	return err
}

func (t *txRepository) InsertPriceHistory(ctx context.Context, h PriceHistory) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO price_history (product_id, cost, srp, changed_by, changed_at)
		VALUES ($1,$2,$3,$4,$5)`,
		h.ProductID, h.Cost, h.SRP, h.ChangedBy, h.ChangedAt)
	return err
}

const productColumns = `id, name, category, cost, srp,
	retail_low_stock_threshold, wholesale_low_stock_threshold,
	is_retail_available, is_wholesale_available, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Cost, &p.SRP,
		&p.RetailThreshold, &p.WholesaleThreshold,
		&p.IsRetailAvailable, &p.IsWholesaleAvail, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *Repository) ListProducts(ctx context.Context, p shared.Pagination) ([]Product, error) {
	if p.PerPage <= 0 {
		p.PerPage = 50
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2`, p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, prod)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repository) HasAvailableStock(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM branch_products
			WHERE product_id=$1 AND is_available AND quantity > 0
		)`, productID).Scan(&exists)
	return exists, err
}

func (r *Repository) GetBranch(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, location, branch_type, is_active, created_at
		FROM branches WHERE id=$1`, id,
	).Scan(&b.ID, &b.Name, &b.Location, &b.Type, &b.IsActive, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Branch{}, ErrBranchNotFound
	}
	return b, err
}

func (r *Repository) ListBranches(ctx context.Context, activeOnly bool) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, location, branch_type, is_active, created_at
		FROM branches
		WHERE NOT $1::bool OR is_active
		ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Location, &b.Type, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateBranch(ctx context.Context, b Branch) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE branches SET name=$2, location=$3, branch_type=$4, is_active=$5
		WHERE id=$1`,
		b.ID, b.Name, b.Location, b.Type, b.IsActive)
	if err != nil {
		return translateUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBranchNotFound
	}
	return nil
}

func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact, address, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		s.Name, s.Contact, s.Address, s.CreatedAt).Scan(&id)
	if err != nil {
		return 0, translateUnique(err)
	}
	return id, nil
}

func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, contact, address, created_at FROM suppliers WHERE id=$1`, id,
	).Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, err
}

func (r *Repository) ListSuppliers(ctx context.Context, p shared.Pagination) ([]Supplier, error) {
	if p.PerPage <= 0 {
		p.PerPage = 50
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, contact, address, created_at FROM suppliers
		ORDER BY name
		LIMIT $1 OFFSET $2`, p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Contact, &s.Address, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateSupplier(ctx context.Context, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE suppliers SET name=$2, contact=$3, address=$4 WHERE id=$1`,
		s.ID, s.Name, s.Contact, s.Address)
	if err != nil {
		return translateUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *Repository) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *Repository) ListPriceHistory(ctx context.Context, productID int64) ([]PriceHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, cost, srp, changed_by, changed_at
		FROM price_history
		WHERE product_id=$1
		ORDER BY changed_at DESC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceHistory
	for rows.Next() {
		var h PriceHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Cost, &h.SRP, &h.ChangedBy, &h.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repository) ListBranchProducts(ctx context.Context, branchID int64) ([]BranchProductView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT bp.branch_id, bp.product_id, p.name, bp.quantity,
			bp.is_available, bp.low_stock_since, p.cost, p.srp
		FROM branch_products bp
		JOIN products p ON p.id = bp.product_id
		WHERE bp.branch_id=$1
		ORDER BY p.name`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BranchProductView
	for rows.Next() {
		var v BranchProductView
		if err := rows.Scan(&v.BranchID, &v.ProductID, &v.ProductName, &v.Quantity,
			&v.IsAvailable, &v.LowStockSince, &v.Cost, &v.SRP); err != nil {
			return nil, err
		}
		v.PesoValue = float64(v.Quantity) * v.Cost
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repository) SetBranchProductAvailability(ctx context.Context, branchID, productID int64, available bool) error {
	// Disabling also clears the low-stock timer; the aggregate recompute
	// would do the same on the next report.
	tag, err := r.pool.Exec(ctx, `
		UPDATE branch_products
		SET is_available=$3,
			low_stock_since = CASE WHEN $3 THEN low_stock_since ELSE NULL END
		WHERE branch_id=$1 AND product_id=$2`,
		branchID, productID, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
