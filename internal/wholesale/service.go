package wholesale

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/botica-erp/botica-erp/internal/shared"
)

// TxRepository is the slice of operations available inside a wholesale
// transaction. Client and transaction rows are row-locked so concurrent
// payments never double-spend the credit line.
type TxRepository interface {
	GetClientForUpdate(ctx context.Context, id int64) (Client, error)
	UpdateClientBalance(ctx context.Context, id int64, balance float64) error
	GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error)
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	InsertTransactionItem(ctx context.Context, item TransactionItem) (int64, error)
	UpdateTransaction(ctx context.Context, id int64, status TransactionStatus, amountPaid float64) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	GetPaymentForUpdate(ctx context.Context, id int64) (Payment, error)
	VoidPayment(ctx context.Context, id int64) error
	VoidTransactionPayments(ctx context.Context, transactionID int64) error
	// ProductPricing returns base SRP and wholesale availability plus the
	// branch's on-hand quantity for one product.
	ProductPricing(ctx context.Context, branchID, productID int64) (srp float64, available bool, quantity int, err error)
}

// RepositoryPort abstracts wholesale persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	CreateClient(ctx context.Context, c Client) (int64, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	ListClients(ctx context.Context, p shared.Pagination) ([]Client, error)
	UpdateClient(ctx context.Context, c Client) error

	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	ListPayments(ctx context.Context, transactionID int64) ([]Payment, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	ClientID    int64
	BranchID    int64
	Status      TransactionStatus
	OverdueOnly bool
	Limit       int
	Offset      int
}

// ClientInput carries client create/update fields.
type ClientInput struct {
	Name          string  `json:"name" validate:"required,min=2,max=160"`
	TIN           string  `json:"tin" validate:"required,min=9,max=20"`
	ContactPerson string  `json:"contact_person" validate:"max=120"`
	Phone         string  `json:"phone" validate:"max=32"`
	Markup        float64 `json:"markup" validate:"gte=0,lte=1"`
	PaymentTerms  int     `json:"payment_terms_days" validate:"gte=0,lte=365"`
	CreditLimit   float64 `json:"credit_limit" validate:"gte=0"`
}

// TransactionItemInput is one requested product line.
type TransactionItemInput struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

// TransactionInput creates one credit sale.
type TransactionInput struct {
	ClientID       int64                  `json:"client_id" validate:"required"`
	BranchID       int64                  `json:"branch_id" validate:"required"`
	InitialPayment float64                `json:"initial_payment" validate:"gte=0"`
	PaymentMethod  string                 `json:"payment_method" validate:"max=40"`
	Items          []TransactionItemInput `json:"items" validate:"min=1,dive"`
	ActorID        int64                  `json:"-"`
}

// PaymentInput settles part of a transaction.
type PaymentInput struct {
	Amount  float64 `json:"amount" validate:"gt=0"`
	Method  string  `json:"method" validate:"max=40"`
	ActorID int64   `json:"-"`
}

// Service owns the wholesale credit ledger rules.
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

func (s *Service) CreateClient(ctx context.Context, input ClientInput, actorID int64) (Client, error) {
	client := Client{
		Name:          input.Name,
		TIN:           input.TIN,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Markup:        input.Markup,
		PaymentTerms:  input.PaymentTerms,
		CreditLimit:   input.CreditLimit,
		CreatedAt:     s.clock(),
	}
	id, err := s.repo.CreateClient(ctx, client)
	if err != nil {
		return Client{}, err
	}
	client.ID = id
	s.record(ctx, actorID, "wholesale:client:create", "client", id, nil)
	return client, nil
}

func (s *Service) GetClient(ctx context.Context, id int64) (Client, error) {
	return s.repo.GetClient(ctx, id)
}

func (s *Service) ListClients(ctx context.Context, p shared.Pagination) ([]Client, error) {
	return s.repo.ListClients(ctx, p)
}

func (s *Service) UpdateClient(ctx context.Context, id int64, input ClientInput, actorID int64) (Client, error) {
	client, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return Client{}, err
	}
	client.Name = input.Name
	client.TIN = input.TIN
	client.ContactPerson = input.ContactPerson
	client.Phone = input.Phone
	client.Markup = input.Markup
	client.PaymentTerms = input.PaymentTerms
	client.CreditLimit = input.CreditLimit
	if err := s.repo.UpdateClient(ctx, client); err != nil {
		return Client{}, err
	}
	s.record(ctx, actorID, "wholesale:client:update", "client", id, nil)
	return client, nil
}

func newReference() string {
	return "WS-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateTransaction prices the requested items against the client's markup,
// verifies branch availability and the credit line, applies any initial
// payment, and books the unpaid remainder on the client balance. Stock itself
// moves through inventory reports, not here.
func (s *Service) CreateTransaction(ctx context.Context, input TransactionInput) (Transaction, error) {
	now := s.clock()
	var txn Transaction

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		client, err := tx.GetClientForUpdate(ctx, input.ClientID)
		if err != nil {
			return err
		}

		txn = Transaction{
			Reference: newReference(),
			ClientID:  client.ID,
			BranchID:  input.BranchID,
			Status:    StatusPending,
			DueDate:   now.AddDate(0, 0, client.PaymentTerms),
			CreatedBy: input.ActorID,
			CreatedAt: now,
		}
		for _, in := range input.Items {
			srp, available, quantity, err := tx.ProductPricing(ctx, input.BranchID, in.ProductID)
			if err != nil {
				return err
			}
			if !available {
				return fmt.Errorf("product %d: %w", in.ProductID, ErrProductUnavailable)
			}
			if quantity < in.Quantity {
				return fmt.Errorf("product %d: %w", in.ProductID, ErrInsufficientStock)
			}
			unit := srp * (1 + client.Markup)
			item := TransactionItem{
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
				UnitPrice: unit,
				Subtotal:  unit * float64(in.Quantity),
			}
			txn.Items = append(txn.Items, item)
			txn.Total += item.Subtotal
		}

		initial := input.InitialPayment
		if initial > txn.Total {
			initial = txn.Total
		}
		onCredit := txn.Total - initial
		if client.Balance+onCredit > client.CreditLimit {
			return fmt.Errorf("client %d: %w", client.ID, ErrCreditExceeded)
		}

		txn.AmountPaid = initial
		txn.Status = statusFor(txn.Total, initial)

		id, err := tx.InsertTransaction(ctx, txn)
		if err != nil {
			return err
		}
		txn.ID = id
		for i := range txn.Items {
			txn.Items[i].TransactionID = id
			itemID, err := tx.InsertTransactionItem(ctx, txn.Items[i])
			if err != nil {
				return err
			}
			txn.Items[i].ID = itemID
		}
		if initial > 0 {
			if _, err := tx.InsertPayment(ctx, Payment{
				TransactionID: id,
				Amount:        initial,
				Method:        input.PaymentMethod,
				CreatedBy:     input.ActorID,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}
		return tx.UpdateClientBalance(ctx, client.ID, client.Balance+onCredit)
	})
	if err != nil {
		return Transaction{}, err
	}
	s.record(ctx, input.ActorID, "wholesale:transaction:create", "transaction", txn.ID,
		map[string]any{"reference": txn.Reference, "total": txn.Total})
	return txn, nil
}

// settleTolerance absorbs float residue from markup pricing so a fully
// settled transaction compares equal to its total.
const settleTolerance = 0.005

func statusFor(total, paid float64) TransactionStatus {
	switch {
	case paid >= total-settleTolerance:
		return StatusPaid
	case paid > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) ListPayments(ctx context.Context, transactionID int64) ([]Payment, error) {
	if _, err := s.repo.GetTransaction(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, transactionID)
}

// RecordPayment settles part of the transaction and reduces the client
// balance. Overpayment is rejected, not clipped, so the caller sees the
// actual remaining amount.
func (s *Service) RecordPayment(ctx context.Context, transactionID int64, input PaymentInput) (Payment, error) {
	now := s.clock()
	var payment Payment

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		txn, err := tx.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status == StatusVoided {
			return ErrAlreadyVoided
		}
		remaining := txn.Remaining()
		if input.Amount > remaining+settleTolerance {
			return fmt.Errorf("remaining %.2f: %w", remaining, ErrOverpayment)
		}
		client, err := tx.GetClientForUpdate(ctx, txn.ClientID)
		if err != nil {
			return err
		}

		payment = Payment{
			TransactionID: transactionID,
			Amount:        input.Amount,
			Method:        input.Method,
			CreatedBy:     input.ActorID,
			CreatedAt:     now,
		}
		id, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id

		paid := txn.AmountPaid + input.Amount
		if err := tx.UpdateTransaction(ctx, txn.ID, statusFor(txn.Total, paid), paid); err != nil {
			return err
		}
		return tx.UpdateClientBalance(ctx, client.ID, client.Balance-input.Amount)
	})
	if err != nil {
		return Payment{}, err
	}
	s.record(ctx, input.ActorID, "wholesale:payment:create", "payment", payment.ID,
		map[string]any{"transaction_id": transactionID, "amount": input.Amount})
	return payment, nil
}

// VoidTransaction cancels the sale: its payments are voided and the client
// balance gives back the unpaid remainder.
func (s *Service) VoidTransaction(ctx context.Context, transactionID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		txn, err := tx.GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.Status == StatusVoided {
			return ErrAlreadyVoided
		}
		client, err := tx.GetClientForUpdate(ctx, txn.ClientID)
		if err != nil {
			return err
		}
		if err := tx.VoidTransactionPayments(ctx, txn.ID); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, txn.ID, StatusVoided, txn.AmountPaid); err != nil {
			return err
		}
		return tx.UpdateClientBalance(ctx, client.ID, client.Balance-txn.Remaining())
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "wholesale:transaction:void", "transaction", transactionID, nil)
	return nil
}

// VoidPayment reverses one payment: the transaction owes the amount again
// and the client balance grows back by it.
func (s *Service) VoidPayment(ctx context.Context, paymentID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.IsVoided {
			return ErrAlreadyVoided
		}
		txn, err := tx.GetTransactionForUpdate(ctx, payment.TransactionID)
		if err != nil {
			return err
		}
		if txn.Status == StatusVoided {
			return ErrAlreadyVoided
		}
		client, err := tx.GetClientForUpdate(ctx, txn.ClientID)
		if err != nil {
			return err
		}
		if err := tx.VoidPayment(ctx, paymentID); err != nil {
			return err
		}
		paid := txn.AmountPaid - payment.Amount
		if err := tx.UpdateTransaction(ctx, txn.ID, statusFor(txn.Total, paid), paid); err != nil {
			return err
		}
		return tx.UpdateClientBalance(ctx, client.ID, client.Balance+payment.Amount)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "wholesale:payment:void", "payment", paymentID, nil)
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
