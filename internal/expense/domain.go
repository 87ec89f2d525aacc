package expense

import (
	"errors"
	"time"
)

var ErrExpenseNotFound = errors.New("expense not found")

// Scope says whether the expense belongs to the whole company or one branch.
type Scope string

const (
	ScopeCompany Scope = "company"
	ScopeBranch  Scope = "branch"
)

// Expense is one spend record.
type Expense struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Scope     Scope     `json:"scope"`
	BranchID  *int64    `json:"branch_id,omitempty"`
	Vendor    string    `json:"vendor"`
	SpentAt   time.Time `json:"spent_at"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary aggregates a period of expenses for dashboards.
type Summary struct {
	Total           float64            `json:"total"`
	DailyAverage    float64            `json:"daily_average"`
	HighestCategory string             `json:"highest_category"`
	ByCategory      map[string]float64 `json:"by_category"`
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
}
