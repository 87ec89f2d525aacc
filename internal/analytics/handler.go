package analytics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/botica-erp/botica-erp/internal/platform/httpx"
	"github.com/botica-erp/botica-erp/internal/shared"
)

// Handler wires HTTP endpoints for analytics.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.overview)
	r.Get("/branches/{id}", h.branch)
	r.Get("/branches/{id}/inventory", h.inventory)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if actor.Role != shared.RoleAdmin {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "company overview is admin-only")
		return
	}
	overview, err := h.service.CompanyOverview(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.logger.Error("overview failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) branchID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid branch id")
		return 0, false
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if !actor.CanAccessBranch(id) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "branch not accessible")
		return 0, false
	}
	return id, true
}

func (h *Handler) branch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.branchID(w, r)
	if !ok {
		return
	}
	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		from, _ = time.Parse("2006-01-02", v)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, _ = time.Parse("2006-01-02", v)
	}
	report, err := h.service.BranchAnalytics(r.Context(), id, from, to)
	if err != nil {
		h.logger.Error("branch analytics failed", slog.Int64("branch_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.branchID(w, r)
	if !ok {
		return
	}
	report, err := h.service.InventoryAnalytics(r.Context(), id)
	if err != nil {
		h.logger.Error("inventory analytics failed", slog.Int64("branch_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
