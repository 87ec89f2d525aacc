package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecomputeLowStockTimer(t *testing.T) {
	now := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	t.Run("starts at threshold", func(t *testing.T) {
		stock := BranchStock{Quantity: 50, IsAvailable: true}
		next := Recompute(stock, true, 10, 10, now)
		require.Equal(t, 10, next.Quantity)
		require.NotNil(t, next.LowStockSince)
		require.True(t, next.LowStockSince.Equal(now))
	})

	t.Run("running timer is never reset", func(t *testing.T) {
		stock := BranchStock{Quantity: 8, IsAvailable: true, LowStockSince: &earlier}
		next := Recompute(stock, true, 10, 5, now)
		require.NotNil(t, next.LowStockSince)
		require.True(t, next.LowStockSince.Equal(earlier))
	})

	t.Run("clears above threshold", func(t *testing.T) {
		stock := BranchStock{Quantity: 5, IsAvailable: true, LowStockSince: &earlier}
		next := Recompute(stock, true, 10, 40, now)
		require.Nil(t, next.LowStockSince)
		require.Equal(t, 40, next.Quantity)
	})
}

func TestRecomputeNotOffered(t *testing.T) {
	now := time.Now()
	since := now.Add(-time.Hour)
	stock := BranchStock{Quantity: 5, IsAvailable: true, LowStockSince: &since}

	next := Recompute(stock, false, 10, 7, now)
	require.False(t, next.IsAvailable)
	require.Nil(t, next.LowStockSince)
	// Quantity still mirrors the batch total even when the product is off
	// the shelf for this branch type.
	require.Equal(t, 7, next.Quantity)
}

func TestRecomputeAutoReactivation(t *testing.T) {
	now := time.Now()

	stock := BranchStock{Quantity: 0, IsAvailable: false}
	next := Recompute(stock, true, 10, 25, now)
	require.True(t, next.IsAvailable)
	require.Equal(t, 25, next.Quantity)
	require.Nil(t, next.LowStockSince)
}

func TestRecomputeStaysUnavailableAtZero(t *testing.T) {
	stock := BranchStock{Quantity: 0, IsAvailable: false}
	next := Recompute(stock, true, 10, 0, time.Now())
	require.False(t, next.IsAvailable)
	require.Nil(t, next.LowStockSince)
}

func TestRecomputeReactivationBelowThresholdStartsTimerNextTime(t *testing.T) {
	now := time.Now()

	// Reactivation and the low-stock check use the pre-reactivation
	// availability, so the timer arms on the following recompute.
	stock := BranchStock{Quantity: 0, IsAvailable: false}
	next := Recompute(stock, true, 10, 4, now)
	require.True(t, next.IsAvailable)
	require.Nil(t, next.LowStockSince)

	later := now.Add(time.Hour)
	next = Recompute(next, true, 10, 4, later)
	require.NotNil(t, next.LowStockSince)
	require.True(t, next.LowStockSince.Equal(later))
}
