package expense

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// RepositoryPort abstracts expense persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, e Expense) (int64, error)
	Get(ctx context.Context, id int64) (Expense, error)
	List(ctx context.Context, filter Filter) ([]Expense, error)
	Update(ctx context.Context, e Expense) error
	Delete(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Filter narrows expense listings.
type Filter struct {
	Scope    Scope
	BranchID int64
	Type     string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Input carries expense create/update fields.
type Input struct {
	Name     string    `json:"name" validate:"required,min=2,max=160"`
	Type     string    `json:"type" validate:"required,max=80"`
	Amount   float64   `json:"amount" validate:"gt=0"`
	Scope    Scope     `json:"scope" validate:"required,oneof=company branch"`
	BranchID *int64    `json:"branch_id" validate:"required_if=Scope branch,omitempty,gt=0"`
	Vendor   string    `json:"vendor" validate:"max=160"`
	SpentAt  time.Time `json:"spent_at" validate:"required"`
}

// Service owns expense bookkeeping.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
	clock  func() time.Time
}

func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, clock: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, input Input, actorID int64) (Expense, error) {
	expense := Expense{
		Name:      input.Name,
		Type:      input.Type,
		Amount:    input.Amount,
		Scope:     input.Scope,
		Vendor:    input.Vendor,
		SpentAt:   input.SpentAt,
		CreatedBy: actorID,
		CreatedAt: s.clock(),
	}
	if input.Scope == ScopeBranch {
		expense.BranchID = input.BranchID
	}
	id, err := s.repo.Insert(ctx, expense)
	if err != nil {
		return Expense{}, err
	}
	expense.ID = id
	s.record(ctx, actorID, "expense:create", id)
	return expense, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Expense, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id int64, input Input, actorID int64) (Expense, error) {
	expense, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	expense.Name = input.Name
	expense.Type = input.Type
	expense.Amount = input.Amount
	expense.Scope = input.Scope
	expense.Vendor = input.Vendor
	expense.SpentAt = input.SpentAt
	expense.BranchID = nil
	if input.Scope == ScopeBranch {
		expense.BranchID = input.BranchID
	}
	if err := s.repo.Update(ctx, expense); err != nil {
		return Expense{}, err
	}
	s.record(ctx, actorID, "expense:update", id)
	return expense, nil
}

func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "expense:delete", id)
	return nil
}

// Summarize folds a period of expenses into dashboard numbers. The daily
// average divides by calendar days in the period, inclusive.
func (s *Service) Summarize(ctx context.Context, filter Filter) (Summary, error) {
	if filter.To.IsZero() {
		filter.To = s.clock()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.AddDate(0, 0, -30)
	}
	expenses, err := s.repo.List(ctx, filter)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		ByCategory: make(map[string]float64),
		From:       filter.From,
		To:         filter.To,
	}
	for _, e := range expenses {
		summary.Total += e.Amount
		summary.ByCategory[e.Type] += e.Amount
	}
	days := int(filter.To.Sub(filter.From).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	summary.DailyAverage = summary.Total / float64(days)

	highest := 0.0
	for category, amount := range summary.ByCategory {
		if amount > highest || (amount == highest && summary.HighestCategory == "") {
			highest = amount
			summary.HighestCategory = category
		}
	}
	return summary, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "expense",
		EntityID: fmt.Sprintf("%d", id),
	})
}
