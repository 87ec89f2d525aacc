package expense

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryExpenseRepo struct {
	expenses map[int64]Expense
	nextID   int64
}

func newMemoryExpenseRepo() *memoryExpenseRepo {
	return &memoryExpenseRepo{expenses: make(map[int64]Expense)}
}

func (r *memoryExpenseRepo) Insert(ctx context.Context, e Expense) (int64, error) {
	r.nextID++
	e.ID = r.nextID
	r.expenses[e.ID] = e
	return e.ID, nil
}

func (r *memoryExpenseRepo) Get(ctx context.Context, id int64) (Expense, error) {
	e, ok := r.expenses[id]
	if !ok {
		return Expense{}, ErrExpenseNotFound
	}
	return e, nil
}

func (r *memoryExpenseRepo) List(ctx context.Context, filter Filter) ([]Expense, error) {
	var out []Expense
	for _, e := range r.expenses {
		if filter.Scope != "" && e.Scope != filter.Scope {
			continue
		}
		if filter.BranchID != 0 && (e.BranchID == nil || *e.BranchID != filter.BranchID) {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if !filter.From.IsZero() && e.SpentAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.SpentAt.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryExpenseRepo) Update(ctx context.Context, e Expense) error {
	if _, ok := r.expenses[e.ID]; !ok {
		return ErrExpenseNotFound
	}
	r.expenses[e.ID] = e
	return nil
}

func (r *memoryExpenseRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.expenses[id]; !ok {
		return ErrExpenseNotFound
	}
	delete(r.expenses, id)
	return nil
}

func expDay(offset int) time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestExpenseCRUD(t *testing.T) {
	repo := newMemoryExpenseRepo()
	svc := NewService(repo, nil, nil)

	branchID := int64(2)
	created, err := svc.Create(context.Background(), Input{
		Name: "Electric bill", Type: "utilities", Amount: 4200,
		Scope: ScopeBranch, BranchID: &branchID, SpentAt: expDay(0),
	}, 1)
	require.NoError(t, err)
	require.NotNil(t, created.BranchID)

	updated, err := svc.Update(context.Background(), created.ID, Input{
		Name: "Electric bill", Type: "utilities", Amount: 4500,
		Scope: ScopeCompany, SpentAt: expDay(0),
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 4500.0, updated.Amount)
	// Switching to company scope drops the branch link.
	require.Nil(t, updated.BranchID)

	require.NoError(t, svc.Delete(context.Background(), created.ID, 1))
	_, err = svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestSummarize(t *testing.T) {
	repo := newMemoryExpenseRepo()
	svc := NewService(repo, nil, nil)

	seed := []Expense{
		{Name: "Rent", Type: "rent", Amount: 30000, Scope: ScopeCompany, SpentAt: expDay(1)},
		{Name: "Electric", Type: "utilities", Amount: 5000, Scope: ScopeCompany, SpentAt: expDay(3)},
		{Name: "Water", Type: "utilities", Amount: 1500, Scope: ScopeCompany, SpentAt: expDay(5)},
		{Name: "Outside range", Type: "rent", Amount: 99999, Scope: ScopeCompany, SpentAt: expDay(40)},
	}
	for _, e := range seed {
		_, err := repo.Insert(context.Background(), e)
		require.NoError(t, err)
	}

	summary, err := svc.Summarize(context.Background(), Filter{
		From: expDay(0),
		To:   expDay(9),
	})
	require.NoError(t, err)
	require.InDelta(t, 36500, summary.Total, 0.001)
	require.InDelta(t, 3650, summary.DailyAverage, 0.001)
	require.Equal(t, "rent", summary.HighestCategory)
	require.InDelta(t, 6500, summary.ByCategory["utilities"], 0.001)
}
