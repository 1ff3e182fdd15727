// Admin HTTP handlers.
//
// Read-only views over tenant storage plus a manual sweep trigger:
//   - GET  /tenants                  (known tenants, paginated)
//   - GET  /tenants/{id}/slowpokes   (top late posters of one chat)
//   - POST /sweeps                   (run one retention pass now)
package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/slowpoke-bot/internal/domain"
	"github.com/tbourn/slowpoke-bot/internal/services"
	"github.com/tbourn/slowpoke-bot/internal/utils"
)

// TenantService lists tenants and reads their statistics.
type TenantService interface {
	ListKnownTenants(ctx context.Context) ([]int64, error)
	Slowpokes(ctx context.Context, tenantID int64, limit int) ([]domain.SlowpokeCount, error)
}

// SweepService runs one retention pass.
type SweepService interface {
	RunOnce(ctx context.Context) (services.SweepReport, error)
}

// Handlers groups the admin endpoints.
type Handlers struct {
	tenants TenantService
	sweeper SweepService
}

// New returns Handlers bound to the given services.
func New(tenants TenantService, sweeper SweepService) *Handlers {
	return &Handlers{tenants: tenants, sweeper: sweeper}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListTenantsResponse wraps a page of tenant ids.
type ListTenantsResponse struct {
	Tenants    []int64    `json:"tenants"`
	Pagination Pagination `json:"pagination"`
}

// SlowpokesResponse lists the top slowpokes of one tenant.
type SlowpokesResponse struct {
	TenantID  int64                  `json:"tenant_id"`
	Slowpokes []domain.SlowpokeCount `json:"slowpokes"`
}

// SweepResponse reports a finished sweep.
type SweepResponse struct {
	Tenants    int    `json:"tenants"`
	Purged     int64  `json:"purged"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 500
	)
	page = max(utils.AtoiDefault(c.Query("page"), defaultPage), 1)
	pageSize = utils.QueryInt(c.Query("page_size"), defaultPageSize, 1, maxPageSize)
	return
}

// ListTenants returns the tenants found on disk, sorted by id.
func (h *Handlers) ListTenants(c *gin.Context) {
	page, size := clampPagination(c)

	ids, err := h.tenants.ListKnownTenants(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "cannot list tenants")
		return
	}
	slices.Sort(ids)

	total := len(ids)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	pages := (total + size - 1) / size

	ok(c, http.StatusOK, ListTenantsResponse{
		Tenants: append([]int64{}, ids[start:end]...),
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			Total:      int64(total),
			TotalPages: pages,
			HasNext:    page < pages,
		},
	})
}

// TenantSlowpokes returns the top slowpokes of a known tenant. Unknown ids
// are 404 so the endpoint never creates storage.
func (h *Handlers) TenantSlowpokes(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "tenant id must be an integer")
		return
	}
	limit := utils.QueryInt(c.Query("limit"), 10, 1, 100)

	ctx := c.Request.Context()
	ids, err := h.tenants.ListKnownTenants(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "cannot list tenants")
		return
	}
	if !slices.Contains(ids, id) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown tenant")
		return
	}

	top, err := h.tenants.Slowpokes(ctx, id, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeStatsFailed, "cannot read statistics")
		return
	}
	if top == nil {
		top = []domain.SlowpokeCount{}
	}
	ok(c, http.StatusOK, SlowpokesResponse{TenantID: id, Slowpokes: top})
}

// RunSweep runs a retention pass synchronously. Partial failures still
// return 200 with the error text; an overlapping sweep is 409.
func (h *Handlers) RunSweep(c *gin.Context) {
	rep, err := h.sweeper.RunOnce(c.Request.Context())
	if errors.Is(err, services.ErrSweepInProgress) {
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}
	if err != nil && rep.Tenants == 0 && rep.Failed == 0 {
		fail(c, http.StatusInternalServerError, ErrCodeSweepFailed, err.Error())
		return
	}
	resp := SweepResponse{
		Tenants:    rep.Tenants,
		Purged:     rep.Purged,
		Failed:     rep.Failed,
		DurationMS: rep.Duration.Milliseconds(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	ok(c, http.StatusOK, resp)
}
