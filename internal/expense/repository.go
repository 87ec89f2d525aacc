package expense

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres-backed expense store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, expense_type, amount, scope, branch_id, vendor,
	spent_at, created_by, created_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Name, &e.Type, &e.Amount, &e.Scope, &e.BranchID,
		&e.Vendor, &e.SpentAt, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrExpenseNotFound
	}
	return e, err
}

func (r *Repository) Insert(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (name, expense_type, amount, scope, branch_id,
			vendor, spent_at, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		e.Name, e.Type, e.Amount, e.Scope, e.BranchID,
		e.Vendor, e.SpentAt, e.CreatedBy, e.CreatedAt,
	).Scan(&id)
	return id, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM expenses WHERE id=$1`, id))
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Expense, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	from := filter.From
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := filter.To
	if to.IsZero() {
		to = time.Now().UTC().AddDate(100, 0, 0)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+` FROM expenses
		WHERE ($1::text = '' OR scope=$1)
		  AND ($2::bigint = 0 OR branch_id=$2)
		  AND ($3::text = '' OR expense_type=$3)
		  AND spent_at >= $4 AND spent_at <= $5
		ORDER BY spent_at DESC, id DESC
		LIMIT $6 OFFSET $7`,
		string(filter.Scope), filter.BranchID, filter.Type, from, to,
		limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, e Expense) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE expenses
		SET name=$2, expense_type=$3, amount=$4, scope=$5, branch_id=$6,
			vendor=$7, spent_at=$8
		WHERE id=$1`,
		e.ID, e.Name, e.Type, e.Amount, e.Scope, e.BranchID, e.Vendor, e.SpentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}
