package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/slowpoke-bot/internal/domain"
	"github.com/tbourn/slowpoke-bot/internal/services"
)

// ----- Fakes -----

type fakeTenants struct {
	ids      []int64
	listErr  error
	top      []domain.SlowpokeCount
	statsErr error

	gotID    int64
	gotLimit int
}

func (f *fakeTenants) ListKnownTenants(context.Context) ([]int64, error) {
	return append([]int64(nil), f.ids...), f.listErr
}

func (f *fakeTenants) Slowpokes(_ context.Context, id int64, limit int) ([]domain.SlowpokeCount, error) {
	f.gotID, f.gotLimit = id, limit
	return f.top, f.statsErr
}

type fakeSweeper struct {
	rep services.SweepReport
	err error
}

func (f *fakeSweeper) RunOnce(context.Context) (services.SweepReport, error) { return f.rep, f.err }

func newTestRouter(ts *fakeTenants, sw *fakeSweeper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(ts, sw)
	r := gin.New()
	r.GET("/tenants", h.ListTenants)
	r.GET("/tenants/:id/slowpokes", h.TenantSlowpokes)
	r.POST("/sweeps", h.RunSweep)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: bad JSON %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

// ----- Tests -----

func TestListTenants_SortedAndPaginated(t *testing.T) {
	ts := &fakeTenants{ids: []int64{30, -100, 10, 20, 5}}
	r := newTestRouter(ts, &fakeSweeper{})

	var resp ListTenantsResponse
	if code := do(t, r, http.MethodGet, "/tenants?page=2&page_size=2", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if fmt.Sprint(resp.Tenants) != "[10 20]" {
		t.Fatalf("page 2 = %v; want [10 20]", resp.Tenants)
	}
	p := resp.Pagination
	if p.Total != 5 || p.TotalPages != 3 || !p.HasNext || p.Page != 2 || p.PageSize != 2 {
		t.Fatalf("pagination = %+v", p)
	}

	if code := do(t, r, http.MethodGet, "/tenants?page=9&page_size=0", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Tenants) != 0 || resp.Pagination.PageSize != 1 || resp.Pagination.HasNext {
		t.Fatalf("out of range page = %+v", resp)
	}
}

func TestListTenants_Error(t *testing.T) {
	r := newTestRouter(&fakeTenants{listErr: errors.New("io")}, &fakeSweeper{})
	var er ErrorResponse
	if code := do(t, r, http.MethodGet, "/tenants", &er); code != http.StatusInternalServerError || er.Code != ErrCodeListFailed {
		t.Fatalf("got %d %+v", code, er)
	}
}

func TestTenantSlowpokes(t *testing.T) {
	ts := &fakeTenants{ids: []int64{42}, top: []domain.SlowpokeCount{{UserID: 7, Count: 3}}}
	r := newTestRouter(ts, &fakeSweeper{})

	var resp SlowpokesResponse
	if code := do(t, r, http.MethodGet, "/tenants/42/slowpokes?limit=1000", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.TenantID != 42 || len(resp.Slowpokes) != 1 || resp.Slowpokes[0].UserID != 7 {
		t.Fatalf("resp = %+v", resp)
	}
	if ts.gotLimit != 100 {
		t.Fatalf("limit = %d; want clamped to 100", ts.gotLimit)
	}

	var er ErrorResponse
	if code := do(t, r, http.MethodGet, "/tenants/43/slowpokes", &er); code != http.StatusNotFound {
		t.Fatalf("unknown tenant -> %d", code)
	}
	if code := do(t, r, http.MethodGet, "/tenants/abc/slowpokes", &er); code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", code)
	}

	ts.statsErr = errors.New("locked")
	if code := do(t, r, http.MethodGet, "/tenants/42/slowpokes", &er); code != http.StatusInternalServerError || er.Code != ErrCodeStatsFailed {
		t.Fatalf("stats error -> %d %+v", code, er)
	}
}

func TestRunSweep(t *testing.T) {
	sw := &fakeSweeper{rep: services.SweepReport{Tenants: 3, Purged: 9, Duration: 1500 * time.Millisecond}}
	r := newTestRouter(&fakeTenants{}, sw)

	var resp SweepResponse
	if code := do(t, r, http.MethodPost, "/sweeps", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Tenants != 3 || resp.Purged != 9 || resp.DurationMS != 1500 || resp.Error != "" {
		t.Fatalf("resp = %+v", resp)
	}

	sw.rep.Failed, sw.err = 1, errors.New("tenant 5: locked")
	if code := do(t, r, http.MethodPost, "/sweeps", &resp); code != http.StatusOK || resp.Error == "" || resp.Failed != 1 {
		t.Fatalf("partial -> %d %+v", code, resp)
	}

	var er ErrorResponse
	sw.rep, sw.err = services.SweepReport{}, services.ErrSweepInProgress
	if code := do(t, r, http.MethodPost, "/sweeps", &er); code != http.StatusConflict || er.Code != ErrCodeConflict {
		t.Fatalf("in progress -> %d %+v", code, er)
	}

	sw.err = errors.New("root gone")
	if code := do(t, r, http.MethodPost, "/sweeps", &er); code != http.StatusInternalServerError || er.Code != ErrCodeSweepFailed {
		t.Fatalf("failed -> %d %+v", code, er)
	}
}
