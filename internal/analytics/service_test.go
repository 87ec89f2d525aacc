package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/botica-erp/botica-erp/internal/inventory"
)

type mockRepo struct {
	mu            sync.Mutex
	revenue       float64
	cost          float64
	expenses      float64
	revPoints     []TimePoint
	expPoints     []TimePoint
	branches      []BranchPerformance
	top           []TopProduct
	metrics       []inventory.Metric
	summaryCalls  int
	revenueCalls  int
	expenseCalls  int
	branchCalls   int
	topCalls      int
	perDayExpense int
}

func (m *mockRepo) SalesSummary(ctx context.Context, from, to time.Time, branchID int64) (float64, float64, error) {
	m.mu.Lock()
	m.summaryCalls++
	m.mu.Unlock()
	return m.revenue, m.cost, nil
}

func (m *mockRepo) RevenueByDay(ctx context.Context, from, to time.Time, branchID int64) ([]TimePoint, error) {
	m.mu.Lock()
	m.revenueCalls++
	m.mu.Unlock()
	return m.revPoints, nil
}

func (m *mockRepo) ExpenseTotal(ctx context.Context, from, to time.Time, branchID int64) (float64, error) {
	m.mu.Lock()
	m.expenseCalls++
	m.mu.Unlock()
	return m.expenses, nil
}

func (m *mockRepo) ExpensesByDay(ctx context.Context, from, to time.Time, branchID int64) ([]TimePoint, error) {
	m.mu.Lock()
	m.perDayExpense++
	m.mu.Unlock()
	return m.expPoints, nil
}

func (m *mockRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	m.mu.Lock()
	m.topCalls++
	m.mu.Unlock()
	return m.top, nil
}

func (m *mockRepo) BranchPerformance(ctx context.Context, from, to time.Time) ([]BranchPerformance, error) {
	m.mu.Lock()
	m.branchCalls++
	m.mu.Unlock()
	return m.branches, nil
}

func (m *mockRepo) InsertMetric(ctx context.Context, metric inventory.Metric) error {
	m.metrics = append(m.metrics, metric)
	return nil
}

type mockStock struct {
	lots    []inventory.ExpiringBatch
	summary map[inventory.ExpiryTier]inventory.TierSummary
	low     []inventory.LowStockItem
	value   float64
	calls   int
}

func (m *mockStock) ExpiringBatches(ctx context.Context, branchID int64, days int) ([]inventory.ExpiringBatch, map[inventory.ExpiryTier]inventory.TierSummary, error) {
	m.calls++
	return m.lots, m.summary, nil
}

func (m *mockStock) LowStock(ctx context.Context, branchID int64) ([]inventory.LowStockItem, error) {
	return m.low, nil
}

func (m *mockStock) InventoryValue(ctx context.Context, branchID int64) (float64, error) {
	return m.value, nil
}

func newAnalyticsService(t *testing.T, repo RepositoryPort, stock InventoryPort) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, stock, cache, nil)
	svc.clock = func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCompanyOverviewComputesAndCaches(t *testing.T) {
	day1 := time.Date(2026, 6, 28, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	repo := &mockRepo{
		revenue:   10000,
		cost:      6000,
		expenses:  1500,
		revPoints: []TimePoint{{Date: day1, Value: 4000}, {Date: day2, Value: 6000}},
		expPoints: []TimePoint{{Date: day2, Value: 1500}},
		branches:  []BranchPerformance{{BranchID: 1, BranchName: "Main", Revenue: 10000, Cost: 6000}},
		top:       []TopProduct{{ProductID: 10, Name: "Amoxicillin 500mg", Quantity: 80, Revenue: 5000}},
	}
	svc := newAnalyticsService(t, repo, &mockStock{})

	overview, err := svc.CompanyOverview(context.Background(), "7d")
	require.NoError(t, err)
	require.InDelta(t, 4000, overview.GrossProfit, 0.001)
	require.InDelta(t, 2500, overview.NetProfit, 0.001)
	require.InDelta(t, 0.25, overview.Margin, 0.001)
	require.Len(t, overview.Trend, 2)
	require.InDelta(t, 4000, overview.Trend[0].Profit, 0.001)
	require.InDelta(t, 4500, overview.Trend[1].Profit, 0.001)

	// Second read is served from cache.
	_, err = svc.CompanyOverview(context.Background(), "7d")
	require.NoError(t, err)
	require.Equal(t, 1, repo.summaryCalls)

	// Different period misses.
	_, err = svc.CompanyOverview(context.Background(), "30d")
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)
}

func TestRecordMetricBumpsCache(t *testing.T) {
	repo := &mockRepo{revenue: 100}
	svc := newAnalyticsService(t, repo, &mockStock{})

	_, err := svc.CompanyOverview(context.Background(), "7d")
	require.NoError(t, err)
	require.Equal(t, 1, repo.summaryCalls)

	branchID := int64(1)
	require.NoError(t, svc.RecordMetric(context.Background(), inventory.Metric{
		Name: inventory.MetricInventoryLevel, Value: 42, BranchID: &branchID,
	}))
	require.Len(t, repo.metrics, 1)
	require.False(t, repo.metrics[0].At.IsZero())

	// Version bump invalidates the cached overview.
	_, err = svc.CompanyOverview(context.Background(), "7d")
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)
}

func TestInventoryAnalytics(t *testing.T) {
	stock := &mockStock{
		lots: []inventory.ExpiringBatch{{ProductID: 10, Quantity: 5, Tier: inventory.TierCritical}},
		summary: map[inventory.ExpiryTier]inventory.TierSummary{
			inventory.TierCritical: {Count: 1, Quantity: 5},
		},
		low:   []inventory.LowStockItem{{ProductID: 10, CurrentStock: 2, Threshold: 10}},
		value: 1234.5,
	}
	svc := newAnalyticsService(t, &mockRepo{}, stock)

	report, err := svc.InventoryAnalytics(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 1234.5, report.InventoryValue, 0.001)
	require.Len(t, report.ExpiringLots, 1)
	require.Len(t, report.LowStock, 1)

	// Cached on second read.
	_, err = svc.InventoryAnalytics(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, stock.calls)
}

func TestPeriodRange(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	from, to, err := PeriodRange("1y", now)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(-1, 0, 0), from)
	require.Equal(t, now, to)

	_, _, err = PeriodRange("2w", now)
	require.Error(t, err)
}
