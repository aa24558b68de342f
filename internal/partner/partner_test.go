package partner

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/auditlog"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/storage"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/internal/validation"
	"github.com/uniresearch/research-portal-backend/middleware"
)

var editor = mutation.Request{Access: middleware.AccessContext{UserID: 3, RoleName: "editor", PermissionType: middleware.PermissionFull}}

func setup(t *testing.T) (Service, *storage.Service) {
	t.Helper()
	db := testutil.NewDB(t, &Partner{}, &auditlog.AuditLog{})
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(db)), changefeed.NewLocal())
	store := storage.NewMemoryService("http://portal.test")
	return NewService(NewRepository(db), rec, store), store
}

func TestPublicListFollowsDisplayOrder(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	for _, in := range []PartnerInput{
		{Name: "Zeta Labs", DisplayOrder: 1},
		{Name: "Acme Research", DisplayOrder: 2},
		{Name: "Beta Foundation", DisplayOrder: 1},
	} {
		if _, err := s.Create(ctx, editor, in, listquery.Params{}); err != nil {
			t.Fatalf("create %s: %v", in.Name, err)
		}
	}

	page, err := s.ListPublic(ctx, listquery.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{page.Data[0].Name, page.Data[1].Name, page.Data[2].Name}
	if strings.Join(got, ",") != "Beta Foundation,Zeta Labs,Acme Research" || page.PageSize != 12 {
		t.Fatalf("order = %v size = %d", got, page.PageSize)
	}
}

func TestCreateValidation(t *testing.T) {
	s, _ := setup(t)
	_, err := s.Create(context.Background(), editor, PartnerInput{Website: "not a url", DisplayOrder: -1}, listquery.Params{})
	fe, ok := validation.AsFieldErrors(err)
	if !ok || fe["name"] == "" || fe["website"] == "" || fe["display_order"] == "" {
		t.Fatalf("err = %v", err)
	}
}

func TestLogoUploadReplacesAndDeleteCleansUp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, store := setup(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, editor, PartnerInput{Name: "Acme"}, listquery.Params{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("access_context", editor.Access); c.Next() })
	r.POST("/admin/partners/:id/logo", NewHandler(s).UploadLogo)

	upload := func(name string) int {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("logo", name)
		fw.Write([]byte("png bytes"))
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/admin/partners/1/logo", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := upload("acme.png"); code != http.StatusOK {
		t.Fatalf("first upload = %d", code)
	}
	if code := upload("acme-v2.webp"); code != http.StatusOK {
		t.Fatalf("second upload = %d", code)
	}

	pt, _ := s.GetByID(ctx, 1)
	if !strings.HasPrefix(pt.LogoURL, "http://portal.test/storage/partner-pics/") || !strings.HasSuffix(pt.LogoPath, ".webp") {
		t.Fatalf("partner = %+v", pt)
	}
	st, _ := store.Store(storage.BucketPartnerPics)
	objs, _ := st.List(ctx, "")
	if len(objs) != 1 {
		t.Fatalf("objects after replace = %d", len(objs))
	}

	if _, err := s.Delete(ctx, editor, 1, listquery.Params{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	objs, _ = st.List(ctx, "")
	if len(objs) != 0 {
		t.Fatalf("logo left behind: %+v", objs)
	}
	if _, err := s.GetByID(ctx, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get deleted = %v", err)
	}
}
