package inventory

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

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers inventory routes. Callers wrap them in the
// authentication middleware; role checks happen here.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/reports", h.submitReport)
	r.Get("/reports", h.listReports)
	r.Get("/reports/{id}", h.getReport)
	r.Patch("/reports/{id}/view", h.markViewed)
	r.Get("/branches/{branchID}/expiring", h.expiring)
	r.Get("/branches/{branchID}/low-stock", h.lowStock)
	r.Get("/branches/{branchID}/value", h.inventoryValue)
}

type movementResponse struct {
	Type           MovementType `json:"batch_type"`
	Quantity       int          `json:"quantity"`
	ExpirationDate string       `json:"expiration_date"`
}

type itemResponse struct {
	ID            int64              `json:"id"`
	ProductID     int64              `json:"product_id"`
	Beginning     int                `json:"beginning"`
	SellingArea   int                `json:"selling_area"`
	Offtake       int                `json:"offtake"`
	Deliver       int                `json:"deliver"`
	Transfer      int                `json:"transfer"`
	PullOut       int                `json:"pull_out"`
	CurrentCost   float64            `json:"current_cost"`
	CurrentSRP    float64            `json:"current_srp"`
	PesoValue     float64            `json:"peso_value"`
	MovementLines []movementResponse `json:"movements"`
}

type reportResponse struct {
	ID         int64          `json:"id"`
	BranchID   int64          `json:"branch_id"`
	CreatedAt  time.Time      `json:"created_at"`
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	ViewedBy   *int64         `json:"viewed_by,omitempty"`
	ItemsCount int            `json:"items_count"`
	Items      []itemResponse `json:"items"`
}

func toReportResponse(rep Report) reportResponse {
	resp := reportResponse{
		ID:         rep.ID,
		BranchID:   rep.BranchID,
		CreatedAt:  rep.CreatedAt,
		StartDate:  rep.StartDate.Format("2006-01-02"),
		EndDate:    rep.EndDate.Format("2006-01-02"),
		ViewedBy:   rep.ViewedBy,
		ItemsCount: len(rep.Items),
		Items:      make([]itemResponse, 0, len(rep.Items)),
	}
	for _, item := range rep.Items {
		ir := itemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Beginning:   item.Beginning,
			SellingArea: item.SellingArea,
			Offtake:     item.Offtake,
			Deliver:     item.DeliverTotal(),
			Transfer:    item.TransferTotal(),
			PullOut:     item.PullOutTotal(),
			CurrentCost: item.CurrentCost,
			CurrentSRP:  item.CurrentSRP,
			PesoValue:   item.PesoValue(),
		}
		for _, m := range item.Movements {
			ir.MovementLines = append(ir.MovementLines, movementResponse{
				Type:           m.Type,
				Quantity:       m.Quantity,
				ExpirationDate: m.ExpirationDate.Format("2006-01-02"),
			})
		}
		resp.Items = append(resp.Items, ir)
	}
	return resp
}

func (h *Handler) submitReport(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing actor")
		return
	}
	var input SubmitReportInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !actor.CanAccessBranch(input.BranchID) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "report is for another branch")
		return
	}
	input.ActorID = actor.UserID
	report, err := h.service.SubmitReport(r.Context(), input)
	if err != nil {
		h.logger.Error("submit report failed",
			slog.Int64("branch_id", input.BranchID),
			slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReportResponse(report))
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid report id")
		return
	}
	report, err := h.service.GetReport(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if !actor.CanAccessBranch(report.BranchID) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "report belongs to another branch")
		return
	}
	httpx.JSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	filter := ReportFilter{Limit: 100}
	if v := r.URL.Query().Get("branch_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid branch_id")
			return
		}
		filter.BranchID = id
	}
	if actor.Role != shared.RoleAdmin {
		// Branch roles only see their own branch regardless of the filter.
		if actor.BranchID == 0 {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "no branch assigned")
			return
		}
		filter.BranchID = actor.BranchID
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 500 {
			filter.Limit = limit
		}
	}
	reports, err := h.service.ListReports(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toReportResponse(rep))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) markViewed(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if actor.Role != shared.RoleAdmin {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "only admins acknowledge reports")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid report id")
		return
	}
	if err := h.service.MarkViewed(r.Context(), id, actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "report acknowledged"})
}

func (h *Handler) expiring(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchParam(w, r)
	if !ok {
		return
	}
	days := 90
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	lots, summary, err := h.service.ExpiringBatches(r.Context(), branchID, days)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"batches": lots,
		"summary": summary,
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchParam(w, r)
	if !ok {
		return
	}
	items, err := h.service.LowStock(r.Context(), branchID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) inventoryValue(w http.ResponseWriter, r *http.Request) {
	branchID, ok := h.branchParam(w, r)
	if !ok {
		return
	}
	value, err := h.service.InventoryValue(r.Context(), branchID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]float64{"inventory_value": value})
}

func (h *Handler) branchParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	branchID, err := strconv.ParseInt(chi.URLParam(r, "branchID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid branch id")
		return 0, false
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if !actor.CanAccessBranch(branchID) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch not accessible")
		return 0, false
	}
	return branchID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBranchNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrReportNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrProductUnavailable),
		errors.Is(err, ErrBatchNotFound),
		errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
