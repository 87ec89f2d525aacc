package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/botica-erp/botica-erp/internal/inventory"
)

// TimePoint is one dated value on a trend line.
type TimePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TrendPoint merges the revenue and expense lines for one day.
type TrendPoint struct {
	Date     time.Time `json:"date"`
	Revenue  float64   `json:"revenue"`
	Expenses float64   `json:"expenses"`
	Profit   float64   `json:"profit"`
}

// BranchPerformance is one branch's contribution over a period.
type BranchPerformance struct {
	BranchID   int64   `json:"branch_id"`
	BranchName string  `json:"branch_name"`
	Revenue    float64 `json:"revenue"`
	Cost       float64 `json:"cost"`
	Profit     float64 `json:"profit"`
}

// TopProduct is one best-seller entry.
type TopProduct struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// Overview is the company dashboard for one period.
type Overview struct {
	Period      string              `json:"period"`
	From        time.Time           `json:"from"`
	To          time.Time           `json:"to"`
	Revenue     float64             `json:"revenue"`
	COGS        float64             `json:"cogs"`
	GrossProfit float64             `json:"gross_profit"`
	Expenses    float64             `json:"expenses"`
	NetProfit   float64             `json:"net_profit"`
	Margin      float64             `json:"margin"`
	Branches    []BranchPerformance `json:"branches"`
	TopProducts []TopProduct        `json:"top_products"`
	Trend       []TrendPoint        `json:"trend"`
}

// BranchReport carries raw per-day numbers for one branch and range.
type BranchReport struct {
	BranchID int64       `json:"branch_id"`
	From     time.Time   `json:"from"`
	To       time.Time   `json:"to"`
	Revenue  []TimePoint `json:"revenue"`
	Expenses []TimePoint `json:"expenses"`
}

// InventoryReport is the stock health view for one branch.
type InventoryReport struct {
	BranchID       int64                                          `json:"branch_id"`
	InventoryValue float64                                        `json:"inventory_value"`
	ExpiringLots   []inventory.ExpiringBatch                      `json:"expiring_lots"`
	ExpirySummary  map[inventory.ExpiryTier]inventory.TierSummary `json:"expiry_summary"`
	LowStock       []inventory.LowStockItem                       `json:"low_stock"`
}

// RepositoryPort abstracts the aggregation queries.
type RepositoryPort interface {
	// SalesSummary prices report-item offtake at the frozen SRP and cost.
	SalesSummary(ctx context.Context, from, to time.Time, branchID int64) (revenue, cost float64, err error)
	RevenueByDay(ctx context.Context, from, to time.Time, branchID int64) ([]TimePoint, error)
	ExpenseTotal(ctx context.Context, from, to time.Time, branchID int64) (float64, error)
	ExpensesByDay(ctx context.Context, from, to time.Time, branchID int64) ([]TimePoint, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
	BranchPerformance(ctx context.Context, from, to time.Time) ([]BranchPerformance, error)
	InsertMetric(ctx context.Context, m inventory.Metric) error
}

// InventoryPort is the slice of the inventory service analytics needs.
type InventoryPort interface {
	ExpiringBatches(ctx context.Context, branchID int64, days int) ([]inventory.ExpiringBatch, map[inventory.ExpiryTier]inventory.TierSummary, error)
	LowStock(ctx context.Context, branchID int64) ([]inventory.LowStockItem, error)
	InventoryValue(ctx context.Context, branchID int64) (float64, error)
}

// Service composes cached analytics over report, expense, and stock data.
type Service struct {
	repo   RepositoryPort
	stock  InventoryPort
	cache  *Cache
	logger *slog.Logger
	clock  func() time.Time
}

func NewService(repo RepositoryPort, stock InventoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stock: stock, cache: cache, logger: logger, clock: func() time.Time { return time.Now().UTC() }}
}

// PeriodRange resolves the dashboard period tokens into a date range.
func PeriodRange(period string, now time.Time) (time.Time, time.Time, error) {
	to := now
	switch period {
	case "7d":
		return to.AddDate(0, 0, -7), to, nil
	case "", "30d":
		return to.AddDate(0, 0, -30), to, nil
	case "90d":
		return to.AddDate(0, 0, -90), to, nil
	case "1y":
		return to.AddDate(-1, 0, 0), to, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", period)
	}
}

// CompanyOverview builds (or serves from cache) the company dashboard.
func (s *Service) CompanyOverview(ctx context.Context, period string) (Overview, error) {
	if period == "" {
		period = "30d"
	}
	from, to, err := PeriodRange(period, s.clock())
	if err != nil {
		return Overview{}, err
	}

	key, err := s.cache.BuildKey(ctx, keyOverview(period))
	if err != nil {
		return Overview{}, err
	}
	var overview Overview
	err = s.cache.FetchJSON(ctx, key, &overview, func(ctx context.Context) (any, error) {
		return s.buildOverview(ctx, period, from, to)
	})
	return overview, err
}

func (s *Service) buildOverview(ctx context.Context, period string, from, to time.Time) (Overview, error) {
	var (
		revenue, cost, expenses float64
		branches                []BranchPerformance
		top                     []TopProduct
		revByDay, expByDay      []TimePoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		revenue, cost, err = s.repo.SalesSummary(gctx, from, to, 0)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ExpenseTotal(gctx, from, to, 0)
		return err
	})
	g.Go(func() error {
		var err error
		branches, err = s.repo.BranchPerformance(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = s.repo.TopProducts(gctx, from, to, 10)
		return err
	})
	g.Go(func() error {
		var err error
		revByDay, err = s.repo.RevenueByDay(gctx, from, to, 0)
		return err
	})
	g.Go(func() error {
		var err error
		expByDay, err = s.repo.ExpensesByDay(gctx, from, to, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	overview := Overview{
		Period:      period,
		From:        from,
		To:          to,
		Revenue:     revenue,
		COGS:        cost,
		GrossProfit: revenue - cost,
		Expenses:    expenses,
		NetProfit:   revenue - cost - expenses,
		Branches:    branches,
		TopProducts: top,
		Trend:       mergeTrend(revByDay, expByDay),
	}
	if revenue > 0 {
		overview.Margin = overview.NetProfit / revenue
	}
	return overview, nil
}

func mergeTrend(revenue, expenses []TimePoint) []TrendPoint {
	byDay := make(map[time.Time]*TrendPoint)
	for _, p := range revenue {
		day := inventory.DateOnly(p.Date)
		tp, ok := byDay[day]
		if !ok {
			tp = &TrendPoint{Date: day}
			byDay[day] = tp
		}
		tp.Revenue += p.Value
	}
	for _, p := range expenses {
		day := inventory.DateOnly(p.Date)
		tp, ok := byDay[day]
		if !ok {
			tp = &TrendPoint{Date: day}
			byDay[day] = tp
		}
		tp.Expenses += p.Value
	}
	out := make([]TrendPoint, 0, len(byDay))
	for _, tp := range byDay {
		tp.Profit = tp.Revenue - tp.Expenses
		out = append(out, *tp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// BranchAnalytics serves raw daily revenue and expense points for one branch.
func (s *Service) BranchAnalytics(ctx context.Context, branchID int64, from, to time.Time) (BranchReport, error) {
	if to.IsZero() {
		to = s.clock()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	fromKey, toKey := from.Format("2006-01-02"), to.Format("2006-01-02")

	key, err := s.cache.BuildKey(ctx, keyBranch(branchID, fromKey, toKey))
	if err != nil {
		return BranchReport{}, err
	}
	var report BranchReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		revenue, err := s.repo.RevenueByDay(ctx, from, to, branchID)
		if err != nil {
			return nil, err
		}
		expenses, err := s.repo.ExpensesByDay(ctx, from, to, branchID)
		if err != nil {
			return nil, err
		}
		return BranchReport{BranchID: branchID, From: from, To: to, Revenue: revenue, Expenses: expenses}, nil
	})
	return report, err
}

// InventoryAnalytics combines expiry tiers, low-stock alerts, and the valued
// stock for one branch.
func (s *Service) InventoryAnalytics(ctx context.Context, branchID int64) (InventoryReport, error) {
	key, err := s.cache.BuildKey(ctx, keyInventory(branchID))
	if err != nil {
		return InventoryReport{}, err
	}
	var report InventoryReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		lots, summary, err := s.stock.ExpiringBatches(ctx, branchID, 90)
		if err != nil {
			return nil, err
		}
		low, err := s.stock.LowStock(ctx, branchID)
		if err != nil {
			return nil, err
		}
		value, err := s.stock.InventoryValue(ctx, branchID)
		if err != nil {
			return nil, err
		}
		return InventoryReport{
			BranchID:       branchID,
			InventoryValue: value,
			ExpiringLots:   lots,
			ExpirySummary:  summary,
			LowStock:       low,
		}, nil
	})
	return report, err
}

// RecordMetric appends one point to the timeseries and invalidates cached
// dashboards. The worker calls this for every post-commit report metric.
func (s *Service) RecordMetric(ctx context.Context, m inventory.Metric) error {
	if m.At.IsZero() {
		m.At = s.clock()
	}
	if err := s.repo.InsertMetric(ctx, m); err != nil {
		return err
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
	return nil
}
