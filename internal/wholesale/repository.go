package wholesale

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// Repository is the Postgres-backed wholesale store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside one transaction. Credit bookkeeping relies on the
// FOR UPDATE locks taken inside, so default isolation is enough.
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

const clientColumns = `id, name, tin, contact_person, phone, markup,
	payment_terms_days, credit_limit, balance, created_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.TIN, &c.ContactPerson, &c.Phone,
		&c.Markup, &c.PaymentTerms, &c.CreditLimit, &c.Balance, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrClientNotFound
	}
	return c, err
}

func (r *Repository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wholesale_clients (name, tin, contact_person, phone,
			markup, payment_terms_days, credit_limit, balance, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8)
		RETURNING id`,
		c.Name, c.TIN, c.ContactPerson, c.Phone,
		c.Markup, c.PaymentTerms, c.CreditLimit, c.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateTIN
		}
		return 0, err
	}
	return id, nil
}

func (r *Repository) GetClient(ctx context.Context, id int64) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM wholesale_clients WHERE id=$1`, id))
}

func (r *Repository) ListClients(ctx context.Context, p shared.Pagination) ([]Client, error) {
	if p.PerPage <= 0 {
		p.PerPage = 50
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+` FROM wholesale_clients
		ORDER BY name
		LIMIT $1 OFFSET $2`, p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateClient(ctx context.Context, c Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE wholesale_clients
		SET name=$2, tin=$3, contact_person=$4, phone=$5,
			markup=$6, payment_terms_days=$7, credit_limit=$8
		WHERE id=$1`,
		c.ID, c.Name, c.TIN, c.ContactPerson, c.Phone,
		c.Markup, c.PaymentTerms, c.CreditLimit)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTIN
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (t *txRepository) GetClientForUpdate(ctx context.Context, id int64) (Client, error) {
	return scanClient(t.tx.QueryRow(ctx, `SELECT `+clientColumns+` FROM wholesale_clients WHERE id=$1 FOR UPDATE`, id))
}

func (t *txRepository) UpdateClientBalance(ctx context.Context, id int64, balance float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE wholesale_clients SET balance=$2 WHERE id=$1`, id, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

const transactionColumns = `id, reference, client_id, branch_id, status,
	total, amount_paid, due_date, created_by, created_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Reference, &t.ClientID, &t.BranchID, &t.Status,
		&t.Total, &t.AmountPaid, &t.DueDate, &t.CreatedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

func (t *txRepository) GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(t.tx.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM wholesale_transactions WHERE id=$1 FOR UPDATE`, id))
}

func (t *txRepository) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO wholesale_transactions (reference, client_id, branch_id,
			status, total, amount_paid, due_date, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		txn.Reference, txn.ClientID, txn.BranchID,
		txn.Status, txn.Total, txn.AmountPaid, txn.DueDate, txn.CreatedBy, txn.CreatedAt,
	).Scan(&id)
	return id, err
}

func (t *txRepository) InsertTransactionItem(ctx context.Context, item TransactionItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO wholesale_transaction_items (transaction_id, product_id,
			quantity, unit_price, subtotal)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		item.TransactionID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal,
	).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateTransaction(ctx context.Context, id int64, status TransactionStatus, amountPaid float64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE wholesale_transactions SET status=$2, amount_paid=$3 WHERE id=$1`,
		id, status, amountPaid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (t *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO wholesale_payments (transaction_id, amount, method,
			is_voided, created_by, created_at)
		VALUES ($1,$2,$3,FALSE,$4,$5)
		RETURNING id`,
		p.TransactionID, p.Amount, p.Method, p.CreatedBy, p.CreatedAt,
	).Scan(&id)
	return id, err
}

func (t *txRepository) GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error) {
	var p Payment
	err := t.tx.QueryRow(ctx, `
		SELECT id, transaction_id, amount, method, is_voided, created_by, created_at
		FROM wholesale_payments WHERE id=$1 FOR UPDATE`, id,
	).Scan(&p.ID, &p.TransactionID, &p.Amount, &p.Method, &p.IsVoided, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func (t *txRepository) VoidPayment(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE wholesale_payments SET is_voided=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (t *txRepository) VoidTransactionPayments(ctx context.Context, transactionID int64) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE wholesale_payments SET is_voided=TRUE WHERE transaction_id=$1`, transactionID)
	return err
}

func (t *txRepository) ProductPricing(ctx context.Context, branchID, productID int64) (float64, bool, int, error) {
	var srp float64
	var wholesaleOK, rowAvailable bool
	var quantity int
	err := t.tx.QueryRow(ctx, `
		SELECT p.srp, p.is_wholesale_available, bp.is_available, bp.quantity
		FROM products p
		JOIN branch_products bp ON bp.product_id = p.id AND bp.branch_id = $1
		WHERE p.id = $2`, branchID, productID,
	).Scan(&srp, &wholesaleOK, &rowAvailable, &quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, 0, ErrProductUnavailable
	}
	if err != nil {
		return 0, false, 0, err
	}
	return srp, wholesaleOK && rowAvailable, quantity, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	txn, err := scanTransaction(r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM wholesale_transactions WHERE id=$1`, id))
	if err != nil {
		return Transaction{}, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, product_id, quantity, unit_price, subtotal
		FROM wholesale_transaction_items
		WHERE transaction_id=$1
		ORDER BY id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID,
			&item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return Transaction{}, err
		}
		txn.Items = append(txn.Items, item)
	}
	return txn, rows.Err()
}

func (r *Repository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM wholesale_transactions
		WHERE ($1::bigint = 0 OR client_id=$1)
		  AND ($2::bigint = 0 OR branch_id=$2)
		  AND ($3::text = '' OR status=$3)
		  AND (NOT $4::bool OR (status IN ('pending','partial') AND due_date < NOW()))
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`,
		filter.ClientID, filter.BranchID, string(filter.Status), filter.OverdueOnly,
		limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

func (r *Repository) ListPayments(ctx context.Context, transactionID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, amount, method, is_voided, created_by, created_at
		FROM wholesale_payments
		WHERE transaction_id=$1
		ORDER BY created_at, id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.Amount, &p.Method,
			&p.IsVoided, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
