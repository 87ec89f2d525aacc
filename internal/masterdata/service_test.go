package masterdata

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botica-erp/botica-erp/internal/shared"
)

type stockKey struct {
	branchID  int64
	productID int64
}

type stockRow struct {
	quantity    int
	isAvailable bool
}

type memoryMDRepo struct {
	products  map[int64]Product
	branches  map[int64]Branch
	suppliers map[int64]Supplier
	history   map[int64][]PriceHistory
	stocks    map[stockKey]stockRow
	nextID    int64
}

func newMemoryMDRepo() *memoryMDRepo {
	return &memoryMDRepo{
		products:  make(map[int64]Product),
		branches:  make(map[int64]Branch),
		suppliers: make(map[int64]Supplier),
		history:   make(map[int64][]PriceHistory),
		stocks:    make(map[stockKey]stockRow),
	}
}

func (r *memoryMDRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryMDRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryMDRepo) InsertProduct(ctx context.Context, p Product) (int64, error) {
	p.ID = r.id()
	r.products[p.ID] = p
	return p.ID, nil
}

func (r *memoryMDRepo) UpdateProduct(ctx context.Context, p Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *memoryMDRepo) InsertBranch(ctx context.Context, b Branch) (int64, error) {
	b.ID = r.id()
	r.branches[b.ID] = b
	return b.ID, nil
}

func (r *memoryMDRepo) SeedStockForProduct(ctx context.Context, productID int64) error {
	for id, b := range r.branches {
		if !b.IsActive {
			continue
		}
		key := stockKey{branchID: id, productID: productID}
		if _, ok := r.stocks[key]; !ok {
			r.stocks[key] = stockRow{}
		}
	}
	return nil
}

func (r *memoryMDRepo) SeedStockForBranch(ctx context.Context, branchID int64) error {
	for id := range r.products {
		key := stockKey{branchID: branchID, productID: id}
		if _, ok := r.stocks[key]; !ok {
			r.stocks[key] = stockRow{}
		}
	}
	return nil
}

func (r *memoryMDRepo) InsertPriceHistory(ctx context.Context, h PriceHistory) error {
	h.ID = r.id()
	r.history[h.ProductID] = append(r.history[h.ProductID], h)
	return nil
}

func (r *memoryMDRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *memoryMDRepo) ListProducts(ctx context.Context, p shared.Pagination) ([]Product, error) {
	var out []Product
	for _, prod := range r.products {
		out = append(out, prod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryMDRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryMDRepo) HasAvailableStock(ctx context.Context, productID int64) (bool, error) {
	for key, row := range r.stocks {
		if key.productID == productID && row.isAvailable && row.quantity > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryMDRepo) GetBranch(ctx context.Context, id int64) (Branch, error) {
	b, ok := r.branches[id]
	if !ok {
		return Branch{}, ErrBranchNotFound
	}
	return b, nil
}

func (r *memoryMDRepo) ListBranches(ctx context.Context, activeOnly bool) ([]Branch, error) {
	var out []Branch
	for _, b := range r.branches {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryMDRepo) UpdateBranch(ctx context.Context, b Branch) error {
	if _, ok := r.branches[b.ID]; !ok {
		return ErrBranchNotFound
	}
	r.branches[b.ID] = b
	return nil
}

func (r *memoryMDRepo) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	s.ID = r.id()
	r.suppliers[s.ID] = s
	return s.ID, nil
}

func (r *memoryMDRepo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, nil
}

func (r *memoryMDRepo) ListSuppliers(ctx context.Context, p shared.Pagination) ([]Supplier, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryMDRepo) UpdateSupplier(ctx context.Context, s Supplier) error {
	if _, ok := r.suppliers[s.ID]; !ok {
		return ErrSupplierNotFound
	}
	r.suppliers[s.ID] = s
	return nil
}

func (r *memoryMDRepo) DeleteSupplier(ctx context.Context, id int64) error {
	if _, ok := r.suppliers[id]; !ok {
		return ErrSupplierNotFound
	}
	delete(r.suppliers, id)
	return nil
}

func (r *memoryMDRepo) ListPriceHistory(ctx context.Context, productID int64) ([]PriceHistory, error) {
	return append([]PriceHistory(nil), r.history[productID]...), nil
}

func (r *memoryMDRepo) ListBranchProducts(ctx context.Context, branchID int64) ([]BranchProductView, error) {
	var out []BranchProductView
	for key, row := range r.stocks {
		if key.branchID != branchID {
			continue
		}
		p := r.products[key.productID]
		out = append(out, BranchProductView{
			BranchID:    branchID,
			ProductID:   key.productID,
			ProductName: p.Name,
			Quantity:    row.quantity,
			IsAvailable: row.isAvailable,
			Cost:        p.Cost,
			SRP:         p.SRP,
			PesoValue:   float64(row.quantity) * p.Cost,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (r *memoryMDRepo) SetBranchProductAvailability(ctx context.Context, branchID, productID int64, available bool) error {
	key := stockKey{branchID: branchID, productID: productID}
	row, ok := r.stocks[key]
	if !ok {
		return ErrProductNotFound
	}
	row.isAvailable = available
	r.stocks[key] = row
	return nil
}

func newMDService(repo *memoryMDRepo) *Service {
	svc := NewService(repo, nil, nil)
	svc.clock = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateProductSeedsAllActiveBranches(t *testing.T) {
	repo := newMemoryMDRepo()
	repo.branches[1] = Branch{ID: 1, Name: "Main", IsActive: true}
	repo.branches[2] = Branch{ID: 2, Name: "Hub", IsActive: true}
	repo.branches[3] = Branch{ID: 3, Name: "Closed", IsActive: false}
	svc := newMDService(repo)

	product, err := svc.CreateProduct(context.Background(), ProductInput{
		Name: "Cetirizine 10mg", Cost: 3, SRP: 6, RetailThreshold: 20,
	}, 1)
	require.NoError(t, err)
	require.NotZero(t, product.ID)

	require.Contains(t, repo.stocks, stockKey{branchID: 1, productID: product.ID})
	require.Contains(t, repo.stocks, stockKey{branchID: 2, productID: product.ID})
	require.NotContains(t, repo.stocks, stockKey{branchID: 3, productID: product.ID})

	// Seeded rows start empty and off the shelf.
	row := repo.stocks[stockKey{branchID: 1, productID: product.ID}]
	require.Zero(t, row.quantity)
	require.False(t, row.isAvailable)
}

func TestCreateBranchSeedsAllProducts(t *testing.T) {
	repo := newMemoryMDRepo()
	repo.products[10] = Product{ID: 10, Name: "A"}
	repo.products[11] = Product{ID: 11, Name: "B"}
	svc := newMDService(repo)

	branch, err := svc.CreateBranch(context.Background(), BranchInput{
		Name: "New Hub", Type: "wholesale", IsActive: true,
	}, 1)
	require.NoError(t, err)
	require.Contains(t, repo.stocks, stockKey{branchID: branch.ID, productID: int64(10)})
	require.Contains(t, repo.stocks, stockKey{branchID: branch.ID, productID: int64(11)})
}

func TestUpdateProductRecordsPriceHistory(t *testing.T) {
	repo := newMemoryMDRepo()
	repo.products[10] = Product{ID: 10, Name: "Losartan 50mg", Cost: 5, SRP: 9}
	svc := newMDService(repo)

	_, err := svc.UpdateProduct(context.Background(), 10, ProductInput{
		Name: "Losartan 50mg", Cost: 5.5, SRP: 9,
	}, 7)
	require.NoError(t, err)
	require.Len(t, repo.history[10], 1)
	require.Equal(t, 5.5, repo.history[10][0].Cost)
	require.Equal(t, int64(7), repo.history[10][0].ChangedBy)

	// Non-price update appends nothing.
	_, err = svc.UpdateProduct(context.Background(), 10, ProductInput{
		Name: "Losartan 50mg Film-Coated", Cost: 5.5, SRP: 9,
	}, 7)
	require.NoError(t, err)
	require.Len(t, repo.history[10], 1)
}

func TestDeleteProductGuardedByAvailableStock(t *testing.T) {
	repo := newMemoryMDRepo()
	repo.products[10] = Product{ID: 10, Name: "A"}
	repo.stocks[stockKey{branchID: 1, productID: 10}] = stockRow{quantity: 5, isAvailable: true}
	svc := newMDService(repo)

	err := svc.DeleteProduct(context.Background(), 10, 1)
	require.ErrorIs(t, err, ErrProductInUse)
	require.Contains(t, repo.products, int64(10))

	// Unavailable leftovers do not block deletion.
	repo.stocks[stockKey{branchID: 1, productID: 10}] = stockRow{quantity: 5, isAvailable: false}
	require.NoError(t, svc.DeleteProduct(context.Background(), 10, 1))
	require.NotContains(t, repo.products, int64(10))
}

func TestSetAvailabilityChecksExistence(t *testing.T) {
	repo := newMemoryMDRepo()
	repo.branches[1] = Branch{ID: 1, Name: "Main", IsActive: true}
	repo.products[10] = Product{ID: 10, Name: "A"}
	repo.stocks[stockKey{branchID: 1, productID: 10}] = stockRow{}
	svc := newMDService(repo)

	require.NoError(t, svc.SetAvailability(context.Background(), 1, 10, true, 1))
	require.True(t, repo.stocks[stockKey{branchID: 1, productID: 10}].isAvailable)

	require.ErrorIs(t, svc.SetAvailability(context.Background(), 9, 10, true, 1), ErrBranchNotFound)
	require.ErrorIs(t, svc.SetAvailability(context.Background(), 1, 99, true, 1), ErrProductNotFound)
}

func TestSupplierCRUD(t *testing.T) {
	repo := newMemoryMDRepo()
	svc := newMDService(repo)

	created, err := svc.CreateSupplier(context.Background(), SupplierInput{Name: "UniPharm"}, 1)
	require.NoError(t, err)

	updated, err := svc.UpdateSupplier(context.Background(), created.ID, SupplierInput{
		Name: "UniPharm Distribution", Contact: "+63 2 8888 0000",
	}, 1)
	require.NoError(t, err)
	require.Equal(t, "UniPharm Distribution", updated.Name)

	require.NoError(t, svc.DeleteSupplier(context.Background(), created.ID, 1))
	_, err = svc.GetSupplier(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrSupplierNotFound)
}
