package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/botica-erp/botica-erp/internal/analytics"
	"github.com/botica-erp/botica-erp/internal/auth"
	"github.com/botica-erp/botica-erp/internal/expense"
	"github.com/botica-erp/botica-erp/internal/inventory"
	"github.com/botica-erp/botica-erp/internal/masterdata"
	"github.com/botica-erp/botica-erp/internal/observability"
	"github.com/botica-erp/botica-erp/internal/shared"
	"github.com/botica-erp/botica-erp/internal/wholesale"
	"github.com/botica-erp/botica-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthMiddleware auth.Middleware

	AuthHandler       *auth.Handler
	InventoryHandler  *inventory.Handler
	MasterDataHandler *masterdata.Handler
	WholesaleHandler  *wholesale.Handler
	ExpenseHandler    *expense.Handler
	AnalyticsHandler  *analytics.Handler
	JobHandler        *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Botica defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)

		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		if params.MasterDataHandler != nil {
			r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
		}
		if params.WholesaleHandler != nil {
			r.Route("/wholesale", params.WholesaleHandler.MountRoutes)
		}
		if params.ExpenseHandler != nil {
			r.Route("/expenses", func(r chi.Router) {
				r.Use(params.AuthMiddleware.RequireRole(shared.RoleAdmin))
				params.ExpenseHandler.MountRoutes(r)
			})
		}
		if params.AnalyticsHandler != nil {
			r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
