package masterdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// TxRepository is the slice of repository operations available inside a
// masterdata transaction.
type TxRepository interface {
	InsertProduct(ctx context.Context, p Product) (int64, error)
	UpdateProduct(ctx context.Context, p Product) error
	InsertBranch(ctx context.Context, b Branch) (int64, error)
	// SeedStockForProduct creates a zero-quantity, unavailable stock row
	// for the product at every active branch.
	SeedStockForProduct(ctx context.Context, productID int64) error
	// SeedStockForBranch does the inverse for a newly created branch.
	SeedStockForBranch(ctx context.Context, branchID int64) error
	InsertPriceHistory(ctx context.Context, h PriceHistory) error
}

// RepositoryPort abstracts masterdata persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, p shared.Pagination) ([]Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	HasAvailableStock(ctx context.Context, productID int64) (bool, error)

	GetBranch(ctx context.Context, id int64) (Branch, error)
	ListBranches(ctx context.Context, activeOnly bool) ([]Branch, error)
	UpdateBranch(ctx context.Context, b Branch) error

	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListSuppliers(ctx context.Context, p shared.Pagination) ([]Supplier, error)
	UpdateSupplier(ctx context.Context, s Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error

	ListPriceHistory(ctx context.Context, productID int64) ([]PriceHistory, error)
	ListBranchProducts(ctx context.Context, branchID int64) ([]BranchProductView, error)
	SetBranchProductAvailability(ctx context.Context, branchID, productID int64, available bool) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ProductInput carries product create/update fields.
type ProductInput struct {
	Name               string  `json:"name" validate:"required,min=2,max=160"`
	Category           string  `json:"category" validate:"max=80"`
	Cost               float64 `json:"cost" validate:"gte=0"`
	SRP                float64 `json:"srp" validate:"gte=0"`
	RetailThreshold    int     `json:"retail_low_stock_threshold" validate:"gte=0"`
	WholesaleThreshold int     `json:"wholesale_low_stock_threshold" validate:"gte=0"`
	IsRetailAvailable  bool    `json:"is_retail_available"`
	IsWholesaleAvail   bool    `json:"is_wholesale_available"`
}

// BranchInput carries branch create/update fields.
type BranchInput struct {
	Name     string     `json:"name" validate:"required,min=2,max=160"`
	Location string     `json:"location" validate:"max=200"`
	Type     BranchType `json:"branch_type" validate:"required,oneof=retail wholesale"`
	IsActive bool       `json:"is_active"`
}

// SupplierInput carries supplier create/update fields.
type SupplierInput struct {
	Name    string `json:"name" validate:"required,min=2,max=160"`
	Contact string `json:"contact" validate:"max=120"`
	Address string `json:"address" validate:"max=240"`
}

// Service owns masterdata business rules.
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

// CreateProduct inserts the product and seeds a stock row at every active
// branch in the same transaction, so branch inventories never miss a product.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput, actorID int64) (Product, error) {
	product := Product{
		Name:               input.Name,
		Category:           input.Category,
		Cost:               input.Cost,
		SRP:                input.SRP,
		RetailThreshold:    input.RetailThreshold,
		WholesaleThreshold: input.WholesaleThreshold,
		IsRetailAvailable:  input.IsRetailAvailable,
		IsWholesaleAvail:   input.IsWholesaleAvail,
		CreatedAt:          s.clock(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertProduct(ctx, product)
		if err != nil {
			return err
		}
		product.ID = id
		return tx.SeedStockForProduct(ctx, id)
	})
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actorID, "masterdata:product:create", "product", product.ID, nil)
	return product, nil
}

// UpdateProduct applies the new fields and appends a price-history row when
// cost or SRP changed, keeping frozen report snapshots explainable.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input ProductInput, actorID int64) (Product, error) {
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	next := current
	next.Name = input.Name
	next.Category = input.Category
	next.Cost = input.Cost
	next.SRP = input.SRP
	next.RetailThreshold = input.RetailThreshold
	next.WholesaleThreshold = input.WholesaleThreshold
	next.IsRetailAvailable = input.IsRetailAvailable
	next.IsWholesaleAvail = input.IsWholesaleAvail

	priceChanged := current.Cost != next.Cost || current.SRP != next.SRP
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateProduct(ctx, next); err != nil {
			return err
		}
		if priceChanged {
			return tx.InsertPriceHistory(ctx, PriceHistory{
				ProductID: id,
				Cost:      next.Cost,
				SRP:       next.SRP,
				ChangedBy: actorID,
				ChangedAt: s.clock(),
			})
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actorID, "masterdata:product:update", "product", id, map[string]any{"price_changed": priceChanged})
	return next, nil
}

// DeleteProduct refuses while any branch still has available stock.
func (s *Service) DeleteProduct(ctx context.Context, id int64, actorID int64) error {
	if _, err := s.repo.GetProduct(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.HasAvailableStock(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrProductInUse
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "masterdata:product:delete", "product", id, nil)
	return nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, p shared.Pagination) ([]Product, error) {
	return s.repo.ListProducts(ctx, p)
}

func (s *Service) PriceHistory(ctx context.Context, productID int64) ([]PriceHistory, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListPriceHistory(ctx, productID)
}

// CreateBranch inserts the branch and seeds stock rows for every product.
func (s *Service) CreateBranch(ctx context.Context, input BranchInput, actorID int64) (Branch, error) {
	branch := Branch{
		Name:      input.Name,
		Location:  input.Location,
		Type:      input.Type,
		IsActive:  input.IsActive,
		CreatedAt: s.clock(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertBranch(ctx, branch)
		if err != nil {
			return err
		}
		branch.ID = id
		return tx.SeedStockForBranch(ctx, id)
	})
	if err != nil {
		return Branch{}, err
	}
	s.record(ctx, actorID, "masterdata:branch:create", "branch", branch.ID, nil)
	return branch, nil
}

func (s *Service) UpdateBranch(ctx context.Context, id int64, input BranchInput, actorID int64) (Branch, error) {
	branch, err := s.repo.GetBranch(ctx, id)
	if err != nil {
		return Branch{}, err
	}
	branch.Name = input.Name
	branch.Location = input.Location
	branch.Type = input.Type
	branch.IsActive = input.IsActive
	if err := s.repo.UpdateBranch(ctx, branch); err != nil {
		return Branch{}, err
	}
	s.record(ctx, actorID, "masterdata:branch:update", "branch", id, nil)
	return branch, nil
}

func (s *Service) GetBranch(ctx context.Context, id int64) (Branch, error) {
	return s.repo.GetBranch(ctx, id)
}

func (s *Service) ListBranches(ctx context.Context, activeOnly bool) ([]Branch, error) {
	return s.repo.ListBranches(ctx, activeOnly)
}

func (s *Service) CreateSupplier(ctx context.Context, input SupplierInput, actorID int64) (Supplier, error) {
	supplier := Supplier{Name: input.Name, Contact: input.Contact, Address: input.Address, CreatedAt: s.clock()}
	id, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	supplier.ID = id
	s.record(ctx, actorID, "masterdata:supplier:create", "supplier", id, nil)
	return supplier, nil
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

func (s *Service) ListSuppliers(ctx context.Context, p shared.Pagination) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx, p)
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, input SupplierInput, actorID int64) (Supplier, error) {
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return Supplier{}, err
	}
	supplier.Name = input.Name
	supplier.Contact = input.Contact
	supplier.Address = input.Address
	if err := s.repo.UpdateSupplier(ctx, supplier); err != nil {
		return Supplier{}, err
	}
	s.record(ctx, actorID, "masterdata:supplier:update", "supplier", id, nil)
	return supplier, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id int64, actorID int64) error {
	if _, err := s.repo.GetSupplier(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "masterdata:supplier:delete", "supplier", id, nil)
	return nil
}

func (s *Service) BranchProducts(ctx context.Context, branchID int64) ([]BranchProductView, error) {
	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}
	return s.repo.ListBranchProducts(ctx, branchID)
}

// SetAvailability toggles a product on or off the shelf for one branch.
func (s *Service) SetAvailability(ctx context.Context, branchID, productID int64, available bool, actorID int64) error {
	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return err
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.SetBranchProductAvailability(ctx, branchID, productID, available); err != nil {
		return err
	}
	s.record(ctx, actorID, "masterdata:availability", "branch_product",
		branchID, map[string]any{"product_id": productID, "available": available})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
