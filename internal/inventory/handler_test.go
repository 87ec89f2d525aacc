package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/botica-erp/botica-erp/internal/shared"
)

func newReportRouter(repo *memoryInvRepo) http.Handler {
	svc, _, _ := newTestService(repo, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Route("/inventory", h.MountRoutes)
	return r
}

func listReportsAs(t *testing.T, router http.Handler, actor shared.Actor, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListReportsScopedToOwnBranch(t *testing.T) {
	repo := newMemoryInvRepo()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.reports[1] = &Report{ID: 1, BranchID: 1, CreatedAt: day, StartDate: day, EndDate: day}
	repo.reports[2] = &Report{ID: 2, BranchID: 2, CreatedAt: day, StartDate: day, EndDate: day}
	router := newReportRouter(repo)

	// The branch_id filter cannot widen a pharmacist's view.
	rec := listReportsAs(t, router,
		shared.Actor{UserID: 5, Role: shared.RolePharmacist, BranchID: 1},
		"/inventory/reports?branch_id=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, int64(1), got[0].BranchID)
}

func TestListReportsRejectsBranchRoleWithoutBranch(t *testing.T) {
	repo := newMemoryInvRepo()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.reports[1] = &Report{ID: 1, BranchID: 1, CreatedAt: day, StartDate: day, EndDate: day}
	router := newReportRouter(repo)

	rec := listReportsAs(t, router,
		shared.Actor{UserID: 5, Role: shared.RolePharmacist},
		"/inventory/reports")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = listReportsAs(t, router,
		shared.Actor{UserID: 6, Role: shared.RoleWholesaler},
		"/inventory/reports")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListReportsAdminSeesAllBranches(t *testing.T) {
	repo := newMemoryInvRepo()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo.reports[1] = &Report{ID: 1, BranchID: 1, CreatedAt: day, StartDate: day, EndDate: day}
	repo.reports[2] = &Report{ID: 2, BranchID: 2, CreatedAt: day, StartDate: day, EndDate: day}
	router := newReportRouter(repo)

	rec := listReportsAs(t, router,
		shared.Actor{UserID: 9, Role: shared.RoleAdmin},
		"/inventory/reports")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
}
