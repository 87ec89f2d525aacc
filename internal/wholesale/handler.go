package wholesale

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/botica-erp/botica-erp/internal/platform/httpx"
	"github.com/botica-erp/botica-erp/internal/shared"
)

// Handler wires HTTP endpoints for wholesale credit operations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers wholesale routes. Admins and wholesalers may
// operate here; wholesalers only within their branch.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.listClients)
		r.Post("/", h.createClient)
		r.Get("/{id}", h.getClient)
		r.Put("/{id}", h.updateClient)
	})
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.listTransactions)
		r.Post("/", h.createTransaction)
		r.Get("/{id}", h.getTransaction)
		r.Post("/{id}/payments", h.recordPayment)
		r.Get("/{id}/payments", h.listPayments)
		r.Post("/{id}/void", h.voidTransaction)
	})
	r.Post("/payments/{id}/void", h.voidPayment)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing actor")
		return shared.Actor{}, false
	}
	if actor.Role != shared.RoleAdmin && actor.Role != shared.RoleWholesaler {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "wholesale access required")
		return shared.Actor{}, false
	}
	return actor, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var input ClientInput
	if !h.decode(w, r, &input) {
		return
	}
	client, err := h.service.CreateClient(r.Context(), input, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	client, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	clients, err := h.service.ListClients(r.Context(), shared.Pagination{Page: page, PerPage: perPage})
	if err != nil {
		h.respondError(w, err)
		return
	}
	if clients == nil {
		clients = []Client{}
	}
	httpx.JSON(w, http.StatusOK, clients)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var input ClientInput
	if !h.decode(w, r, &input) {
		return
	}
	client, err := h.service.UpdateClient(r.Context(), id, input, actor.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

type transactionResponse struct {
	Transaction
	Overdue         bool    `json:"overdue"`
	RemainingAmount float64 `json:"remaining_amount"`
}

func (h *Handler) toResponse(txn Transaction) transactionResponse {
	return transactionResponse{
		Transaction:     txn,
		Overdue:         txn.Overdue(time.Now().UTC()),
		RemainingAmount: txn.Remaining(),
	}
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var input TransactionInput
	if !h.decode(w, r, &input) {
		return
	}
	if !actor.CanAccessBranch(input.BranchID) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch not accessible")
		return
	}
	input.ActorID = actor.UserID
	txn, err := h.service.CreateTransaction(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toResponse(txn))
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	txn, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !actor.CanAccessBranch(txn.BranchID) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "transaction belongs to another branch")
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(txn))
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := TransactionFilter{
		Status:      TransactionStatus(q.Get("status")),
		OverdueOnly: q.Get("overdue") == "true",
	}
	filter.ClientID, _ = strconv.ParseInt(q.Get("client_id"), 10, 64)
	filter.BranchID, _ = strconv.ParseInt(q.Get("branch_id"), 10, 64)
	if actor.Role != shared.RoleAdmin {
		filter.BranchID = actor.BranchID
	}
	txns, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, txn := range txns {
		out = append(out, h.toResponse(txn))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var input PaymentInput
	if !h.decode(w, r, &input) {
		return
	}
	input.ActorID = actor.UserID
	payment, err := h.service.RecordPayment(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if payments == nil {
		payments = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) voidTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.VoidTransaction(r.Context(), id, actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "transaction voided"})
}

func (h *Handler) voidPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.VoidPayment(r.Context(), id, actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "payment voided"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrClientNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrPaymentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateTIN),
		errors.Is(err, ErrCreditExceeded),
		errors.Is(err, ErrAlreadyVoided),
		errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrProductUnavailable),
		errors.Is(err, ErrOverpayment):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("wholesale request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
