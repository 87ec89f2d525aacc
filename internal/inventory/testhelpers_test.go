package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// memoryInvRepo backs service and ledger tests. WithTx snapshots mutable
// state and restores it when the callback fails, mirroring a rollback.
type memoryInvRepo struct {
	branches map[int64]Branch
	products map[int64]Product
	batches  map[int64]*StockBatch
	stocks   map[pairKey]BranchStock
	reports  map[int64]*Report
	items    map[int64][]ReportItem
	nextID   int64
}

func newMemoryInvRepo() *memoryInvRepo {
	return &memoryInvRepo{
		branches: make(map[int64]Branch),
		products: make(map[int64]Product),
		batches:  make(map[int64]*StockBatch),
		stocks:   make(map[pairKey]BranchStock),
		reports:  make(map[int64]*Report),
		items:    make(map[int64][]ReportItem),
	}
}

func (r *memoryInvRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryInvRepo) addBatch(branchID, productID int64, quantity int, expiration time.Time) int64 {
	id := r.id()
	r.batches[id] = &StockBatch{
		ID:             id,
		BranchID:       branchID,
		ProductID:      productID,
		Quantity:       quantity,
		ExpirationDate: DateOnly(expiration),
		IsActive:       quantity > 0,
	}
	return id
}

func (r *memoryInvRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	batches := make(map[int64]*StockBatch, len(r.batches))
	for id, b := range r.batches {
		copied := *b
		batches[id] = &copied
	}
	stocks := make(map[pairKey]BranchStock, len(r.stocks))
	for k, v := range r.stocks {
		stocks[k] = v
	}
	reports := make(map[int64]*Report, len(r.reports))
	for id, rep := range r.reports {
		copied := *rep
		reports[id] = &copied
	}
	items := make(map[int64][]ReportItem, len(r.items))
	for id, list := range r.items {
		items[id] = append([]ReportItem(nil), list...)
	}
	nextID := r.nextID

	if err := fn(ctx, r); err != nil {
		r.batches = batches
		r.stocks = stocks
		r.reports = reports
		r.items = items
		r.nextID = nextID
		return err
	}
	return nil
}

func (r *memoryInvRepo) GetBranch(ctx context.Context, id int64) (Branch, error) {
	b, ok := r.branches[id]
	if !ok {
		return Branch{}, ErrBranchNotFound
	}
	return b, nil
}

func (r *memoryInvRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *memoryInvRepo) ListActiveBatchesForUpdate(ctx context.Context, branchID, productID int64) ([]StockBatch, error) {
	var out []StockBatch
	for _, b := range r.batches {
		if b.BranchID == branchID && b.ProductID == productID && b.IsActive {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpirationDate.Equal(out[j].ExpirationDate) {
			return out[i].ExpirationDate.Before(out[j].ExpirationDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryInvRepo) InsertBatch(ctx context.Context, b StockBatch) (int64, error) {
	b.ID = r.id()
	stored := b
	r.batches[b.ID] = &stored
	return b.ID, nil
}

func (r *memoryInvRepo) UpdateBatch(ctx context.Context, id int64, quantity int, active bool) error {
	b, ok := r.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	b.Quantity = quantity
	b.IsActive = active
	return nil
}

func (r *memoryInvRepo) GetStockForUpdate(ctx context.Context, branchID, productID int64) (BranchStock, error) {
	key := pairKey{branchID: branchID, productID: productID}
	if s, ok := r.stocks[key]; ok {
		return s, nil
	}
	return BranchStock{BranchID: branchID, ProductID: productID}, nil
}

func (r *memoryInvRepo) UpsertStock(ctx context.Context, s BranchStock) error {
	r.stocks[pairKey{branchID: s.BranchID, productID: s.ProductID}] = s
	return nil
}

func (r *memoryInvRepo) InsertReport(ctx context.Context, rep Report) (int64, error) {
	rep.ID = r.id()
	stored := rep
	r.reports[rep.ID] = &stored
	return rep.ID, nil
}

func (r *memoryInvRepo) InsertReportItem(ctx context.Context, item ReportItem) (int64, error) {
	item.ID = r.id()
	r.items[item.ReportID] = append(r.items[item.ReportID], item)
	return item.ID, nil
}

func (r *memoryInvRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	return r.id(), nil
}

func (r *memoryInvRepo) GetReport(ctx context.Context, id int64) (Report, error) {
	rep, ok := r.reports[id]
	if !ok {
		return Report{}, ErrReportNotFound
	}
	out := *rep
	out.Items = append([]ReportItem(nil), r.items[id]...)
	return out, nil
}

func (r *memoryInvRepo) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	var out []Report
	for _, rep := range r.reports {
		if filter.BranchID != 0 && rep.BranchID != filter.BranchID {
			continue
		}
		out = append(out, *rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryInvRepo) AcknowledgeReport(ctx context.Context, reportID, adminID int64) error {
	rep, ok := r.reports[reportID]
	if !ok {
		return ErrReportNotFound
	}
	if rep.ViewedBy == nil {
		rep.ViewedBy = &adminID
	}
	return nil
}

func (r *memoryInvRepo) ListExpiringBatches(ctx context.Context, branchID int64, horizon time.Time) ([]StockBatch, map[int64]string, error) {
	var out []StockBatch
	names := make(map[int64]string)
	for _, b := range r.batches {
		if b.BranchID != branchID || !b.IsActive || b.ExpirationDate.After(horizon) {
			continue
		}
		out = append(out, *b)
		names[b.ProductID] = r.products[b.ProductID].Name
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpirationDate.Before(out[j].ExpirationDate) })
	return out, names, nil
}

func (r *memoryInvRepo) ListStockDetails(ctx context.Context, branchID int64) ([]StockDetail, error) {
	branch := r.branches[branchID]
	var out []StockDetail
	for key, s := range r.stocks {
		if key.branchID != branchID {
			continue
		}
		p := r.products[key.productID]
		out = append(out, StockDetail{
			BranchID:           branchID,
			BranchType:         branch.Type,
			ProductID:          key.productID,
			ProductName:        p.Name,
			Cost:               p.Cost,
			Quantity:           s.Quantity,
			IsAvailable:        s.IsAvailable,
			LowStockSince:      s.LowStockSince,
			RetailThreshold:    p.RetailThreshold,
			WholesaleThreshold: p.WholesaleThreshold,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

type memoryAudit struct {
	entries []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type capturedMetrics struct {
	metrics []Metric
}

func (m *capturedMetrics) Emit(ctx context.Context, metric Metric) error {
	m.metrics = append(m.metrics, metric)
	return nil
}
