package inventory

import "time"

// ExpiryTier buckets a batch by how close it is to expiring.
type ExpiryTier string

const (
	// TierExpired means the expiration date has passed (or is today).
	TierExpired ExpiryTier = "expired"
	// TierCritical means 1-30 days remain.
	TierCritical ExpiryTier = "critical"
	// TierWarning means 31-90 days remain.
	TierWarning ExpiryTier = "warning"
	// TierGood means more than 90 days remain.
	TierGood ExpiryTier = "good"
)

// DaysUntilExpiry counts whole calendar days between today and expiration.
func DaysUntilExpiry(expiration, today time.Time) int {
	return int(DateOnly(expiration).Sub(DateOnly(today)).Hours() / 24)
}

// ClassifyExpiry maps days-until-expiry to its tier.
func ClassifyExpiry(expiration, today time.Time) ExpiryTier {
	days := DaysUntilExpiry(expiration, today)
	switch {
	case days <= 0:
		return TierExpired
	case days <= 30:
		return TierCritical
	case days <= 90:
		return TierWarning
	default:
		return TierGood
	}
}

// ExpiringBatch is one (product, expiration date) lot on the alert feed.
type ExpiringBatch struct {
	ProductID       int64      `json:"product_id"`
	ProductName     string     `json:"product_name"`
	Quantity        int        `json:"quantity"`
	ExpirationDate  time.Time  `json:"expiration_date"`
	DaysUntilExpiry int        `json:"days_until_expiry"`
	Tier            ExpiryTier `json:"tier"`
}

// TierSummary aggregates lots falling into one tier.
type TierSummary struct {
	Count    int `json:"count"`
	Quantity int `json:"quantity"`
}

// GroupExpiring folds raw batch rows into per-(product, expiration date)
// entries, summing quantities so duplicate lots are never double-counted,
// and classifies each entry.
func GroupExpiring(batches []StockBatch, names map[int64]string, today time.Time) []ExpiringBatch {
	type lotKey struct {
		productID int64
		day       time.Time
	}
	index := make(map[lotKey]int)
	grouped := make([]ExpiringBatch, 0, len(batches))
	for _, b := range batches {
		if !b.IsActive || b.Quantity <= 0 {
			continue
		}
		day := DateOnly(b.ExpirationDate)
		key := lotKey{productID: b.ProductID, day: day}
		if i, ok := index[key]; ok {
			grouped[i].Quantity += b.Quantity
			continue
		}
		index[key] = len(grouped)
		grouped = append(grouped, ExpiringBatch{
			ProductID:       b.ProductID,
			ProductName:     names[b.ProductID],
			Quantity:        b.Quantity,
			ExpirationDate:  day,
			DaysUntilExpiry: DaysUntilExpiry(day, today),
			Tier:            ClassifyExpiry(day, today),
		})
	}
	return grouped
}

// SummarizeExpiry counts lots and quantity per tier.
func SummarizeExpiry(lots []ExpiringBatch) map[ExpiryTier]TierSummary {
	summary := make(map[ExpiryTier]TierSummary, 4)
	for _, lot := range lots {
		s := summary[lot.Tier]
		s.Count++
		s.Quantity += lot.Quantity
		summary[lot.Tier] = s
	}
	return summary
}
