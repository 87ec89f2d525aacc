package inventory

import (
	"errors"
	"fmt"
	"time"
)

// BranchType distinguishes the two kinds of branches the company runs.
type BranchType string

const (
	// BranchTypeRetail is a pharmacy storefront.
	BranchTypeRetail BranchType = "retail"
	// BranchTypeWholesale is a wholesale distribution branch.
	BranchTypeWholesale BranchType = "wholesale"
)

// MovementType enumerates the batch movements recorded on a report item.
type MovementType string

const (
	// MovementDelivery is stock received from a supplier.
	MovementDelivery MovementType = "delivery"
	// MovementTransfer is stock received from another branch.
	MovementTransfer MovementType = "transfer"
	// MovementPullOut is a targeted removal from a specific lot.
	MovementPullOut MovementType = "pull_out"
)

// Branch is the slice of branch master data the core needs.
type Branch struct {
	ID       int64
	Name     string
	Type     BranchType
	IsActive bool
}

// Product is the slice of product master data the core needs.
type Product struct {
	ID                 int64
	Name               string
	Cost               float64
	SRP                float64
	RetailThreshold    int
	WholesaleThreshold int
	IsRetailAvailable  bool
	IsWholesaleAvail   bool
}

// OfferedFor reports whether the product is offered for the given branch type.
func (p Product) OfferedFor(t BranchType) bool {
	if t == BranchTypeWholesale {
		return p.IsWholesaleAvail
	}
	return p.IsRetailAvailable
}

// Threshold returns the low-stock threshold applicable to the branch type.
func (p Product) Threshold(t BranchType) int {
	if t == BranchTypeWholesale {
		return p.WholesaleThreshold
	}
	return p.RetailThreshold
}

// StockBatch is a quantity of one product at one branch under one expiration
// date. An active batch always has quantity > 0; it is deactivated, never
// deleted, when drained.
type StockBatch struct {
	ID             int64
	BranchID       int64
	ProductID      int64
	Quantity       int
	ExpirationDate time.Time
	IsActive       bool
	CreatedAt      time.Time
}

// BranchStock is the denormalised current state of one product at one branch.
// Quantity must equal the sum of active batch quantities for the pair after
// every committed report.
type BranchStock struct {
	BranchID      int64
	ProductID     int64
	Quantity      int
	IsAvailable   bool
	LowStockSince *time.Time
}

// Report is one reporting-period submission for a branch. Immutable once
// created except for the single viewed-by acknowledgment.
type Report struct {
	ID        int64
	BranchID  int64
	CreatedAt time.Time
	StartDate time.Time
	EndDate   time.Time
	ViewedBy  *int64
	Items     []ReportItem
}

// ReportItem records one product's movements within a report. Cost and SRP
// are frozen at report time so later price changes do not rewrite history.
type ReportItem struct {
	ID          int64
	ReportID    int64
	ProductID   int64
	Beginning   int
	SellingArea int
	Offtake     int
	CurrentCost float64
	CurrentSRP  float64
	Movements   []Movement
}

// Movement is one batch-level movement tied to a report item.
type Movement struct {
	ID             int64
	ItemID         int64
	Type           MovementType
	Quantity       int
	ExpirationDate time.Time
}

// DeliverTotal sums the item's delivery movements.
func (i ReportItem) DeliverTotal() int { return i.movementTotal(MovementDelivery) }

// TransferTotal sums the item's transfer movements.
func (i ReportItem) TransferTotal() int { return i.movementTotal(MovementTransfer) }

// PullOutTotal sums the item's pull-out movements.
func (i ReportItem) PullOutTotal() int { return i.movementTotal(MovementPullOut) }

// PesoValue is the selling-area snapshot priced at the frozen SRP.
func (i ReportItem) PesoValue() float64 {
	return float64(i.SellingArea) * i.CurrentSRP
}

func (i ReportItem) movementTotal(t MovementType) int {
	total := 0
	for _, m := range i.Movements {
		if m.Type == t {
			total += m.Quantity
		}
	}
	return total
}

// Sentinel errors for the inventory core.
var (
	// ErrBranchNotFound indicates the report references an unknown branch.
	ErrBranchNotFound = errors.New("inventory: branch not found")
	// ErrProductNotFound indicates an item references an unknown product.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrProductUnavailable indicates the product is not offered for the branch type.
	ErrProductUnavailable = errors.New("inventory: product not offered for branch type")
	// ErrInsufficientStock indicates consumption exceeds active batch stock.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrBatchNotFound indicates a pull-out references a lot with no active batch.
	ErrBatchNotFound = errors.New("inventory: no active batch for expiration date")
	// ErrInvalidQuantity indicates a non-positive movement quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrReportNotFound indicates a lookup for a missing report.
	ErrReportNotFound = errors.New("inventory: report not found")
)

// StockShortage carries the shortfall detail for an insufficient-stock abort.
type StockShortage struct {
	ProductID int64
	Requested int
	Available int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("inventory: product %d requested %d but only %d available", e.ProductID, e.Requested, e.Available)
}

// Unwrap lets callers match via errors.Is(err, ErrInsufficientStock).
func (e *StockShortage) Unwrap() error { return ErrInsufficientStock }

// BatchShortage carries detail for a pull-out exceeding the targeted lot.
type BatchShortage struct {
	ProductID      int64
	ExpirationDate time.Time
	Requested      int
	Available      int
}

func (e *BatchShortage) Error() string {
	return fmt.Sprintf("inventory: lot %s of product %d holds %d, pull-out of %d refused",
		e.ExpirationDate.Format("2006-01-02"), e.ProductID, e.Available, e.Requested)
}

func (e *BatchShortage) Unwrap() error { return ErrInsufficientStock }
