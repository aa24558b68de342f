package about

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/auditlog"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/middleware"
)

func setup(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewDB(t, &AboutContent{}, &auditlog.AuditLog{})
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(db)), changefeed.NewLocal())
	return NewService(db, rec)
}

func TestGetBeforeFirstEdit(t *testing.T) {
	s := setup(t)
	a, err := s.Get(context.Background())
	if err != nil || a.ID != 1 || a.Title != "" {
		t.Fatalf("about = %+v, %v", a, err)
	}
}

func TestUpdateKeepsSingleRow(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	admin := mutation.Request{Access: middleware.AccessContext{UserID: 1, RoleName: "admin", PermissionType: middleware.PermissionFull}}

	for _, title := range []string{"Research Office", "Office of Research"} {
		if _, err := s.Update(ctx, admin, AboutInput{Title: title, Mission: "Support researchers"}); err != nil {
			t.Fatalf("update %q: %v", title, err)
		}
	}
	var n int64
	s.DB.Model(&AboutContent{}).Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d", n)
	}
	a, _ := s.Get(ctx)
	if a.Title != "Office of Research" || a.Mission != "Support researchers" {
		t.Fatalf("about = %+v", a)
	}

	viewer := mutation.Request{Access: middleware.AccessContext{UserID: 9, RoleName: "viewer", PermissionType: middleware.PermissionReadonly}}
	if _, err := s.Update(ctx, viewer, AboutInput{Title: "x"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("viewer update = %v", err)
	}
}

func TestUpdateHandlerValidates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := setup(t)
	r := gin.New()
	r.PUT("/admin/about", NewHandler(s).UpdateAbout)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/admin/about", strings.NewReader(`{"title":"","contact_email":"nope"}`)))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "title") {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
}
