package auditlog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

type user struct {
	ID       uint `gorm:"primaryKey"`
	FullName string
}

func setup(t *testing.T) Service {
	t.Helper()
	db := testutil.NewDB(t, &AuditLog{}, &user{})
	db.Create(&user{ID: 7, FullName: "Research Office"})

	svc := NewService(NewRepository(db))
	uid, gid := uint(7), uint(42)
	ctx := context.Background()
	entries := []struct {
		user     *uint
		resource string
		action   string
		status   string
	}{
		{&uid, "grants", "GRANT_CREATED", StatusSuccess},
		{&uid, "grants", "GRANT_UPDATED", StatusFailure},
		{&uid, "events", "EVENT_CREATED", StatusSuccess},
		{nil, "labs", "LAB_DELETED", StatusFailure},
	}
	for _, e := range entries {
		if err := svc.LogAction(ctx, e.user, e.resource, &gid, e.action, map[string]interface{}{"project_id": "PX1"}, "203.0.113.7", e.status); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	return svc
}

func TestFiltersAndUserName(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	tests := []struct {
		filters map[string]string
		want    int64
	}{
		{nil, 4},
		{map[string]string{"resource": "grants"}, 2},
		{map[string]string{"resource": "grants", "status": StatusFailure}, 1},
		{map[string]string{"user_id": "7"}, 3},
		{map[string]string{"query": "deleted"}, 1},
		{map[string]string{"action": "all"}, 4},
	}
	for _, tt := range tests {
		page, err := svc.GetAuditLogs(ctx, listquery.Params{Filters: tt.filters})
		if err != nil {
			t.Fatalf("%v: %v", tt.filters, err)
		}
		if page.TotalCount != tt.want {
			t.Fatalf("%v: total = %d, want %d", tt.filters, page.TotalCount, tt.want)
		}
	}

	page, _ := svc.GetAuditLogs(ctx, listquery.Params{Filters: map[string]string{"action": "GRANT_CREATED"}})
	if page.Data[0].UserName != "Research Office" || !strings.Contains(string(page.Data[0].Details), "PX1") {
		t.Fatalf("entry = %+v", page.Data[0])
	}

	_, err := svc.GetAuditLogs(ctx, listquery.Params{Filters: map[string]string{"user_id": "x"}})
	if fe, ok := validation.AsFieldErrors(err); !ok || fe["user_id"] == "" {
		t.Fatalf("bad user_id err = %v", err)
	}
}

func TestStatsAndExport(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	stats, err := svc.GetStats(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.SuccessCount != 2 || stats.FailureCount != 2 || stats.ActionBreakdown["GRANT_CREATED"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	table, err := svc.ExportTable(ctx, listquery.Params{Filters: map[string]string{"status": StatusFailure}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(table.Rows) != 2 || len(table.Rows[0]) != len(table.Headers) {
		t.Fatalf("table = %+v", table)
	}
	users := map[string]bool{}
	for _, row := range table.Rows {
		users[row[1]] = true
	}
	if !users["Research Office"] || !users[""] {
		t.Fatalf("user column = %v", users)
	}
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(setup(t))
	r := gin.New()
	r.GET("/admin/audit-logs", h.GetAuditLogs)
	r.GET("/admin/audit-logs/:id", h.GetAuditLogByID)

	for path, want := range map[string]int{
		"/admin/audit-logs?pageSize=2":          http.StatusOK,
		"/admin/audit-logs?date_from=yesterday": http.StatusBadRequest,
		"/admin/audit-logs/1":                   http.StatusOK,
		"/admin/audit-logs/999":                 http.StatusNotFound,
		"/admin/audit-logs/abc":                 http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s = %d, want %d (%s)", path, w.Code, want, w.Body.String())
		}
	}
}
