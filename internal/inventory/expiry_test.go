package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyExpiryBoundaries(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		days int
		want ExpiryTier
	}{
		{-5, TierExpired},
		{0, TierExpired},
		{1, TierCritical},
		{30, TierCritical},
		{31, TierWarning},
		{90, TierWarning},
		{91, TierGood},
		{365, TierGood},
	}
	for _, tc := range cases {
		got := ClassifyExpiry(today.AddDate(0, 0, tc.days), today)
		require.Equal(t, tc.want, got, "days=%d", tc.days)
	}
}

func TestDaysUntilExpiryIgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)
	expiration := time.Date(2026, 3, 3, 0, 5, 0, 0, time.UTC)
	require.Equal(t, 2, DaysUntilExpiry(expiration, today))
}

func TestGroupExpiringMergesDuplicateLots(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	exp := today.AddDate(0, 0, 20)

	batches := []StockBatch{
		{ProductID: 1, Quantity: 5, ExpirationDate: exp, IsActive: true},
		{ProductID: 1, Quantity: 7, ExpirationDate: exp.Add(6 * time.Hour), IsActive: true},
		{ProductID: 1, Quantity: 3, ExpirationDate: today.AddDate(0, 0, 60), IsActive: true},
		{ProductID: 2, Quantity: 4, ExpirationDate: exp, IsActive: false},
		{ProductID: 2, Quantity: 0, ExpirationDate: exp, IsActive: true},
	}
	names := map[int64]string{1: "Amoxicillin 500mg", 2: "Paracetamol 500mg"}

	lots := GroupExpiring(batches, names, today)
	require.Len(t, lots, 2)

	require.Equal(t, int64(1), lots[0].ProductID)
	require.Equal(t, "Amoxicillin 500mg", lots[0].ProductName)
	require.Equal(t, 12, lots[0].Quantity)
	require.Equal(t, 20, lots[0].DaysUntilExpiry)
	require.Equal(t, TierCritical, lots[0].Tier)

	require.Equal(t, 3, lots[1].Quantity)
	require.Equal(t, TierWarning, lots[1].Tier)
}

func TestSummarizeExpiry(t *testing.T) {
	lots := []ExpiringBatch{
		{Tier: TierExpired, Quantity: 2},
		{Tier: TierCritical, Quantity: 5},
		{Tier: TierCritical, Quantity: 7},
		{Tier: TierGood, Quantity: 100},
	}

	summary := SummarizeExpiry(lots)
	require.Equal(t, TierSummary{Count: 1, Quantity: 2}, summary[TierExpired])
	require.Equal(t, TierSummary{Count: 2, Quantity: 12}, summary[TierCritical])
	require.Equal(t, TierSummary{Count: 1, Quantity: 100}, summary[TierGood])
	require.NotContains(t, summary, TierWarning)
}
