package wholesale

import (
	"errors"
	"time"
)

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrDuplicateTIN        = errors.New("tin already registered")
	ErrCreditExceeded      = errors.New("credit limit exceeded")
	ErrProductUnavailable  = errors.New("product not available at branch")
	ErrInsufficientStock   = errors.New("insufficient branch stock")
	ErrAlreadyVoided       = errors.New("already voided")
	ErrOverpayment         = errors.New("payment exceeds remaining balance")
)

// TransactionStatus tracks how much of a transaction has been settled.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusPartial TransactionStatus = "partial"
	StatusPaid    TransactionStatus = "paid"
	StatusVoided  TransactionStatus = "voided"
)

// Client is a wholesale customer buying on credit terms.
type Client struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TIN           string    `json:"tin"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Markup        float64   `json:"markup"`
	PaymentTerms  int       `json:"payment_terms_days"`
	CreditLimit   float64   `json:"credit_limit"`
	Balance       float64   `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// AvailableCredit is the headroom left on the client's line, floored at zero
// for display.
func (c Client) AvailableCredit() float64 {
	if credit := c.CreditLimit - c.Balance; credit > 0 {
		return credit
	}
	return 0
}

// TransactionItem is one product line priced at base SRP times the client's
// markup.
type TransactionItem struct {
	ID            int64   `json:"id"`
	TransactionID int64   `json:"transaction_id"`
	ProductID     int64   `json:"product_id"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	Subtotal      float64 `json:"subtotal"`
}

// Transaction is one credit sale to a wholesale client.
type Transaction struct {
	ID         int64             `json:"id"`
	Reference  string            `json:"reference"`
	ClientID   int64             `json:"client_id"`
	BranchID   int64             `json:"branch_id"`
	Status     TransactionStatus `json:"status"`
	Total      float64           `json:"total"`
	AmountPaid float64           `json:"amount_paid"`
	DueDate    time.Time         `json:"due_date"`
	CreatedBy  int64             `json:"created_by"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []TransactionItem `json:"items,omitempty"`
}

// Remaining is the unpaid amount on the transaction.
func (t Transaction) Remaining() float64 {
	return t.Total - t.AmountPaid
}

// Overdue reports whether the unpaid transaction passed its due date.
func (t Transaction) Overdue(now time.Time) bool {
	return t.Status != StatusPaid && t.Status != StatusVoided && now.After(t.DueDate)
}

// Payment settles part or all of a transaction.
type Payment struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	IsVoided      bool      `json:"is_voided"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}
