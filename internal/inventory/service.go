package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	// WithTx runs fn inside one transaction; conflicts are retried by the
	// implementation, and any error rolls everything back.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReport(ctx context.Context, id int64) (Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]Report, error)
	AcknowledgeReport(ctx context.Context, reportID, adminID int64) error
	ListExpiringBatches(ctx context.Context, branchID int64, horizon time.Time) ([]StockBatch, map[int64]string, error)
	ListStockDetails(ctx context.Context, branchID int64) ([]StockDetail, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	BranchID int64
	Offset   int
	Limit    int
}

// StockDetail is a branch-product row joined with the data low-stock
// classification needs.
type StockDetail struct {
	BranchID           int64
	BranchType         BranchType
	ProductID          int64
	ProductName        string
	Cost               float64
	Quantity           int
	IsAvailable        bool
	LowStockSince      *time.Time
	RetailThreshold    int
	WholesaleThreshold int
}

// LowStockItem is one entry on the low-stock alert feed.
type LowStockItem struct {
	ProductID     int64      `json:"product_id"`
	ProductName   string     `json:"product_name"`
	CurrentStock  int        `json:"current_stock"`
	Threshold     int        `json:"threshold"`
	LowStockSince *time.Time `json:"low_stock_since,omitempty"`
}

// BatchInput is one movement lot in a report submission.
type BatchInput struct {
	Quantity       int       `json:"quantity" validate:"gt=0"`
	ExpirationDate time.Time `json:"expiration_date" validate:"required"`
}

// ReportItemInput is one product line in a report submission.
type ReportItemInput struct {
	ProductID       int64        `json:"product_id" validate:"required"`
	Beginning       int          `json:"beginning" validate:"gte=0"`
	Offtake         int          `json:"offtake" validate:"gte=0"`
	SellingArea     int          `json:"selling_area" validate:"gte=0"`
	DeliveryBatches []BatchInput `json:"delivery_batches" validate:"dive"`
	TransferBatches []BatchInput `json:"transfer_batches" validate:"dive"`
	PullOutBatches  []BatchInput `json:"pull_out_batches" validate:"dive"`
}

// SubmitReportInput is one reporting-period submission.
type SubmitReportInput struct {
	BranchID  int64             `json:"branch_id" validate:"required"`
	StartDate time.Time         `json:"start_date" validate:"required"`
	EndDate   time.Time         `json:"end_date" validate:"required"`
	Items     []ReportItemInput `json:"items" validate:"min=1,dive"`
	ActorID   int64             `json:"-"`
}

// Service orchestrates report processing over the batch ledger and the
// stock aggregate.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricEmitter
	logger  *slog.Logger
	clock   func() time.Time
}

// NewService builds Service. Audit and metrics may be nil.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricEmitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, clock: func() time.Time { return time.Now().UTC() }}
}

// SubmitReport processes one inventory report as a single all-or-nothing
// transaction. Phase order per item: deliveries, transfers in, pull-outs,
// then FEFO offtake, so outgoing stock may draw on lots delivered in the
// same report and pull-outs drain their target lot before FEFO scans the
// rest. Aggregates are recomputed once per touched pair after all batch
// mutations. Metrics are emitted only after a successful commit.
func (s *Service) SubmitReport(ctx context.Context, input SubmitReportInput) (Report, error) {
	now := s.clock()
	var report Report
	var levels map[int64]int

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		branch, err := tx.GetBranch(ctx, input.BranchID)
		if err != nil {
			return err
		}

		// Resolve and gate every product before any mutation.
		products := make(map[int64]Product, len(input.Items))
		for _, item := range input.Items {
			p, err := tx.GetProduct(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			if !p.OfferedFor(branch.Type) {
				return fmt.Errorf("product %d: %w", item.ProductID, ErrProductUnavailable)
			}
			products[item.ProductID] = p
		}

		report = Report{
			BranchID:  input.BranchID,
			CreatedAt: now,
			StartDate: DateOnly(input.StartDate),
			EndDate:   DateOnly(input.EndDate),
		}
		reportID, err := tx.InsertReport(ctx, report)
		if err != nil {
			return err
		}
		report.ID = reportID

		ledger := NewLedger(tx, now)
		for _, in := range input.Items {
			product := products[in.ProductID]
			item := ReportItem{
				ReportID:    reportID,
				ProductID:   in.ProductID,
				Beginning:   in.Beginning,
				SellingArea: in.SellingArea,
				Offtake:     in.Offtake,
				CurrentCost: product.Cost,
				CurrentSRP:  product.SRP,
			}
			itemID, err := tx.InsertReportItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID

			// Phase A: incoming stock, deliveries before transfers.
			for _, b := range in.DeliveryBatches {
				if err := s.applyIncoming(ctx, tx, ledger, &item, MovementDelivery, input.BranchID, b); err != nil {
					return err
				}
			}
			for _, b := range in.TransferBatches {
				if err := s.applyIncoming(ctx, tx, ledger, &item, MovementTransfer, input.BranchID, b); err != nil {
					return err
				}
			}

			// Phase B: targeted pull-outs. The movement records the matched
			// batch's stored expiration date, not the client-supplied one.
			for _, b := range in.PullOutBatches {
				matched, err := ledger.PullOut(ctx, input.BranchID, in.ProductID, b.Quantity, b.ExpirationDate)
				if err != nil {
					return fmt.Errorf("product %d: %w", in.ProductID, err)
				}
				movement := Movement{
					ItemID:         item.ID,
					Type:           MovementPullOut,
					Quantity:       b.Quantity,
					ExpirationDate: matched,
				}
				id, err := tx.InsertMovement(ctx, movement)
				if err != nil {
					return err
				}
				movement.ID = id
				item.Movements = append(item.Movements, movement)
			}

			// Phase C: FEFO offtake over whatever remains.
			if in.Offtake > 0 {
				if err := ledger.Consume(ctx, input.BranchID, in.ProductID, in.Offtake); err != nil {
					return err
				}
			}

			report.Items = append(report.Items, item)
		}

		if err := ledger.Flush(ctx); err != nil {
			return err
		}

		levels = make(map[int64]int)
		for _, pair := range ledger.Touched() {
			stock, err := tx.GetStockForUpdate(ctx, pair.branchID, pair.productID)
			if err != nil {
				return err
			}
			product := products[pair.productID]
			next := Recompute(stock, product.OfferedFor(branch.Type), product.Threshold(branch.Type), ledger.Total(pair.branchID, pair.productID), now)
			if err := tx.UpsertStock(ctx, next); err != nil {
				return err
			}
			levels[pair.productID] = next.Quantity
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	s.emitReportMetrics(ctx, input, levels, now)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:report",
			Entity:   "inventory_report",
			EntityID: fmt.Sprintf("%d", report.ID),
			Meta: map[string]any{
				"branch_id": input.BranchID,
				"items":     len(input.Items),
			},
		})
	}
	return report, nil
}

func (s *Service) applyIncoming(ctx context.Context, tx TxRepository, ledger *Ledger, item *ReportItem, kind MovementType, branchID int64, b BatchInput) error {
	if err := ledger.Add(ctx, branchID, item.ProductID, b.Quantity, b.ExpirationDate); err != nil {
		return fmt.Errorf("product %d: %w", item.ProductID, err)
	}
	movement := Movement{
		ItemID:         item.ID,
		Type:           kind,
		Quantity:       b.Quantity,
		ExpirationDate: DateOnly(b.ExpirationDate),
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return err
	}
	movement.ID = id
	item.Movements = append(item.Movements, movement)
	return nil
}

func (s *Service) emitReportMetrics(ctx context.Context, input SubmitReportInput, levels map[int64]int, at time.Time) {
	if s.metrics == nil {
		return
	}
	branchID := input.BranchID
	for _, item := range input.Items {
		productID := item.ProductID
		if level, ok := levels[productID]; ok {
			s.emit(ctx, Metric{Name: MetricInventoryLevel, Value: float64(level), BranchID: &branchID, ProductID: &productID, At: at})
		}
		if item.Offtake > 0 {
			s.emit(ctx, Metric{Name: MetricProductOfftake, Value: float64(item.Offtake), BranchID: &branchID, ProductID: &productID, At: at})
		}
	}
}

func (s *Service) emit(ctx context.Context, m Metric) {
	if err := s.metrics.Emit(ctx, m); err != nil {
		s.logger.Warn("emit metric", slog.String("metric", m.Name), slog.Any("error", err))
	}
}

// GetReport loads one report with its items and movements.
func (s *Service) GetReport(ctx context.Context, id int64) (Report, error) {
	return s.repo.GetReport(ctx, id)
}

// ListReports lists reports, optionally scoped to one branch.
func (s *Service) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListReports(ctx, filter)
}

// MarkViewed records the single acknowledging admin. The first viewer wins;
// later calls leave the original acknowledgment untouched.
func (s *Service) MarkViewed(ctx context.Context, reportID, adminID int64) error {
	return s.repo.AcknowledgeReport(ctx, reportID, adminID)
}

// ExpiringBatches returns the branch's lots expiring within the horizon,
// grouped by (product, expiration date) and bucketed by tier.
func (s *Service) ExpiringBatches(ctx context.Context, branchID int64, days int) ([]ExpiringBatch, map[ExpiryTier]TierSummary, error) {
	if days <= 0 {
		days = 90
	}
	today := DateOnly(s.clock())
	horizon := today.AddDate(0, 0, days)
	batches, names, err := s.repo.ListExpiringBatches(ctx, branchID, horizon)
	if err != nil {
		return nil, nil, err
	}
	lots := GroupExpiring(batches, names, today)
	return lots, SummarizeExpiry(lots), nil
}

// LowStock lists the branch's available products sitting at or below their
// branch-type threshold.
func (s *Service) LowStock(ctx context.Context, branchID int64) ([]LowStockItem, error) {
	details, err := s.repo.ListStockDetails(ctx, branchID)
	if err != nil {
		return nil, err
	}
	items := []LowStockItem{}
	for _, d := range details {
		if !d.IsAvailable {
			continue
		}
		threshold := d.RetailThreshold
		if d.BranchType == BranchTypeWholesale {
			threshold = d.WholesaleThreshold
		}
		if d.Quantity <= threshold {
			items = append(items, LowStockItem{
				ProductID:     d.ProductID,
				ProductName:   d.ProductName,
				CurrentStock:  d.Quantity,
				Threshold:     threshold,
				LowStockSince: d.LowStockSince,
			})
		}
	}
	return items, nil
}

// InventoryValue prices the branch's current stock at cost.
func (s *Service) InventoryValue(ctx context.Context, branchID int64) (float64, error) {
	details, err := s.repo.ListStockDetails(ctx, branchID)
	if err != nil {
		return 0, err
	}
	value := 0.0
	for _, d := range details {
		value += float64(d.Quantity) * d.Cost
	}
	return value, nil
}
