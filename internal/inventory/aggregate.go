package inventory

import "time"

// Recompute derives the next BranchStock state from the active batch total.
// It is pure: the caller loads the current row, supplies whether the product
// is offered for the branch type plus the applicable threshold, and persists
// the result.
//
// Rules, applied in order:
//   - product not offered: availability off, low-stock timer cleared; the
//     quantity still mirrors the batch total so the sum invariant holds.
//   - low-stock timer starts when an available product sits at or below the
//     threshold, and only if not already running (a running timer is never
//     reset). It clears as soon as the total rises above the threshold.
//   - a pair that was at zero and received stock becomes available again
//     automatically.
func Recompute(stock BranchStock, offered bool, threshold, total int, now time.Time) BranchStock {
	old := stock.Quantity
	stock.Quantity = total

	if !offered {
		stock.IsAvailable = false
		stock.LowStockSince = nil
		return stock
	}

	if stock.IsAvailable && total <= threshold {
		if stock.LowStockSince == nil {
			at := now
			stock.LowStockSince = &at
		}
	}
	if total > threshold {
		stock.LowStockSince = nil
	}
	if old == 0 && total > 0 {
		stock.IsAvailable = true
	}
	return stock
}
