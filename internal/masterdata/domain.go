package masterdata

import (
	"errors"
	"time"

	"github.com/botica-erp/botica-erp/internal/inventory"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrDuplicateName    = errors.New("name already in use")
	// ErrProductInUse blocks deletion while any branch still holds
	// available stock of the product.
	ErrProductInUse = errors.New("product has available stock")
)

// Product is the full master record; the inventory core reads a slice of it.
type Product struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Category           string    `json:"category"`
	Cost               float64   `json:"cost"`
	SRP                float64   `json:"srp"`
	RetailThreshold    int       `json:"retail_low_stock_threshold"`
	WholesaleThreshold int       `json:"wholesale_low_stock_threshold"`
	IsRetailAvailable  bool      `json:"is_retail_available"`
	IsWholesaleAvail   bool      `json:"is_wholesale_available"`
	CreatedAt          time.Time `json:"created_at"`
}

// BranchType aliases the core's branch taxonomy.
type BranchType = inventory.BranchType

// Branch is a company location.
type Branch struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	Type      BranchType `json:"branch_type"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// Supplier is a product source for deliveries.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceHistory is one cost/SRP change event for a product.
type PriceHistory struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Cost      float64   `json:"cost"`
	SRP       float64   `json:"srp"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// BranchProductView is the per-branch stock detail exposed to clients.
type BranchProductView struct {
	BranchID      int64      `json:"branch_id"`
	ProductID     int64      `json:"product_id"`
	ProductName   string     `json:"product_name"`
	Quantity      int        `json:"quantity"`
	IsAvailable   bool       `json:"is_available"`
	LowStockSince *time.Time `json:"low_stock_since,omitempty"`
	Cost          float64    `json:"cost"`
	SRP           float64    `json:"srp"`
	PesoValue     float64    `json:"peso_value"`
}
