package inventory

import (
	"context"
	"time"
)

type pairKey struct {
	branchID  int64
	productID int64
}

// Ledger stages batch mutations for one report transaction. All active
// batches for a (branch, product) pair are loaded and row-locked on first
// touch, then mutated in memory, so later operations in the same report see
// stock added by earlier ones. Flush persists the staged state before the
// aggregate recompute.
type Ledger struct {
	tx    TxRepository
	now   time.Time
	sets  map[pairKey]*batchSet
	order []pairKey
}

type batchSet struct {
	// Sorted by expiration date ascending; equal dates keep load/insert order.
	batches []*StockBatch
}

// NewLedger builds a ledger bound to the given open transaction.
func NewLedger(tx TxRepository, now time.Time) *Ledger {
	return &Ledger{tx: tx, now: now, sets: make(map[pairKey]*batchSet)}
}

// DateOnly truncates a timestamp to its calendar date at UTC midnight.
// Batches sharing a date are the same lot regardless of time-of-day noise.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (l *Ledger) set(ctx context.Context, branchID, productID int64) (*batchSet, error) {
	key := pairKey{branchID: branchID, productID: productID}
	if s, ok := l.sets[key]; ok {
		return s, nil
	}
	rows, err := l.tx.ListActiveBatchesForUpdate(ctx, branchID, productID)
	if err != nil {
		return nil, err
	}
	s := &batchSet{batches: make([]*StockBatch, 0, len(rows))}
	for i := range rows {
		b := rows[i]
		b.ExpirationDate = DateOnly(b.ExpirationDate)
		s.batches = append(s.batches, &b)
	}
	l.sets[key] = s
	l.order = append(l.order, key)
	return s, nil
}

// Add merges quantity into the active batch matching the expiration date, or
// stages a new batch. No two active batches ever share a (branch, product,
// expiration date) triple.
func (l *Ledger) Add(ctx context.Context, branchID, productID int64, quantity int, expiration time.Time) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	s, err := l.set(ctx, branchID, productID)
	if err != nil {
		return err
	}
	day := DateOnly(expiration)
	for _, b := range s.batches {
		if b.IsActive && b.ExpirationDate.Equal(day) {
			b.Quantity += quantity
			return nil
		}
	}
	s.insert(&StockBatch{
		BranchID:       branchID,
		ProductID:      productID,
		Quantity:       quantity,
		ExpirationDate: day,
		IsActive:       true,
		CreatedAt:      l.now,
	})
	return nil
}

// Consume drains quantity across active batches in FEFO order. The check is
// against the staged total, so stock added earlier in the same report counts.
// A shortfall aborts with the full shortage detail and no partial draw.
func (l *Ledger) Consume(ctx context.Context, branchID, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	s, err := l.set(ctx, branchID, productID)
	if err != nil {
		return err
	}
	available := s.total()
	if available < quantity {
		return &StockShortage{ProductID: productID, Requested: quantity, Available: available}
	}
	remaining := quantity
	for _, b := range s.batches {
		if remaining == 0 {
			break
		}
		if !b.IsActive {
			continue
		}
		take := remaining
		if b.Quantity < take {
			take = b.Quantity
		}
		b.Quantity -= take
		remaining -= take
		if b.Quantity == 0 {
			b.IsActive = false
		}
	}
	return nil
}

// PullOut removes quantity from the single active batch holding the given
// expiration date. It returns the stored expiration date of the matched lot;
// callers record that date, never the caller-supplied one.
func (l *Ledger) PullOut(ctx context.Context, branchID, productID int64, quantity int, expiration time.Time) (time.Time, error) {
	if quantity <= 0 {
		return time.Time{}, ErrInvalidQuantity
	}
	s, err := l.set(ctx, branchID, productID)
	if err != nil {
		return time.Time{}, err
	}
	day := DateOnly(expiration)
	for _, b := range s.batches {
		if !b.IsActive || !b.ExpirationDate.Equal(day) {
			continue
		}
		if b.Quantity < quantity {
			return time.Time{}, &BatchShortage{
				ProductID:      productID,
				ExpirationDate: b.ExpirationDate,
				Requested:      quantity,
				Available:      b.Quantity,
			}
		}
		b.Quantity -= quantity
		if b.Quantity == 0 {
			b.IsActive = false
		}
		return b.ExpirationDate, nil
	}
	return time.Time{}, ErrBatchNotFound
}

// Total reports the staged active quantity for a pair already touched by this
// ledger. Pairs never touched report zero.
func (l *Ledger) Total(branchID, productID int64) int {
	if s, ok := l.sets[pairKey{branchID: branchID, productID: productID}]; ok {
		return s.total()
	}
	return 0
}

// Touched lists every (branch, product) pair mutated or read by this ledger,
// in first-touch order. The report processor recomputes aggregates for each.
func (l *Ledger) Touched() []pairKey {
	return l.order
}

// Flush persists staged state: new batches are inserted (even when drained in
// the same report, to preserve lot history) and loaded batches that changed
// are updated.
func (l *Ledger) Flush(ctx context.Context) error {
	for _, key := range l.order {
		s := l.sets[key]
		for _, b := range s.batches {
			if b.ID == 0 {
				id, err := l.tx.InsertBatch(ctx, *b)
				if err != nil {
					return err
				}
				b.ID = id
				continue
			}
			if err := l.tx.UpdateBatch(ctx, b.ID, b.Quantity, b.IsActive); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *batchSet) total() int {
	total := 0
	for _, b := range s.batches {
		if b.IsActive {
			total += b.Quantity
		}
	}
	return total
}

func (s *batchSet) insert(b *StockBatch) {
	pos := len(s.batches)
	for i, existing := range s.batches {
		if b.ExpirationDate.Before(existing.ExpirationDate) {
			pos = i
			break
		}
	}
	s.batches = append(s.batches, nil)
	copy(s.batches[pos+1:], s.batches[pos:])
	s.batches[pos] = b
}
