package grant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

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

var admin = mutation.Request{Access: middleware.AccessContext{UserID: 1, RoleName: "admin", PermissionType: middleware.PermissionFull}}

func newService(t *testing.T) (Service, *gorm.DB, *storage.Service) {
	t.Helper()
	db := testutil.NewDB(t, &Grant{}, &auditlog.AuditLog{})
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(db)), changefeed.NewLocal())
	store := storage.NewMemoryService("http://portal.test")
	return NewService(NewRepository(db), rec, store), db, store
}

func px(id string, amount float64) GrantInput {
	return GrantInput{ProjectID: id, Title: "Project " + id, Type: "UNIVERSITY GRANT", SponsorCategory: "NATIONAL", ApprovedAmount: amount}
}

func TestAddGrantIncrementsTotal(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, id := range []string{"PA1", "PA2"} {
		if _, err := svc.Create(ctx, admin, px(id, 500), listquery.Params{}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	before, _ := svc.ListAdmin(ctx, listquery.Params{})

	res, err := svc.Create(ctx, admin, px("PX1", 1000), listquery.Params{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.List.TotalCount != before.TotalCount+1 {
		t.Fatalf("total = %d, want %d", res.List.TotalCount, before.TotalCount+1)
	}
	found := false
	for _, g := range res.List.Data {
		if g.ProjectID == "PX1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("PX1 missing from refreshed list: %+v", res.List.Data)
	}
}

func TestValidationIsFieldKeyed(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Create(context.Background(), admin, GrantInput{ProjectID: "PX2", Type: "UNIVERSITY GRANT"}, listquery.Params{})
	fe, ok := validation.AsFieldErrors(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	if fe["approved_amount"] != "must be at least 1" || fe["sponsor_category"] != "is required" {
		t.Fatalf("errors = %v", fe)
	}
}

func TestDuplicateProjectIDConflicts(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, admin, px("PX1", 1000), listquery.Params{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, admin, px("PX1", 2000), listquery.Params{})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "project_id" {
		t.Fatalf("err = %v, want project_id conflict", err)
	}
}

func TestCreateHandlerReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validation.UseJSONFieldNames()
	svc, _, _ := newService(t)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("access_context", admin.Access); c.Next() })
	r.POST("/admin/grants", NewHandler(svc).CreateGrant)

	body := `{"project_id":"PX1","type":"UNIVERSITY GRANT","sponsor_category":"NATIONAL","approved_amount":1000}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/grants?page=1&pageSize=5", strings.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var res struct {
		Message string
		Data    Grant
		List    listquery.Page[Grant]
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Data.ProjectID != "PX1" || res.List.TotalCount != 1 || res.List.PageSize != 5 {
		t.Fatalf("response = %+v", res)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/grants", strings.NewReader(`{"project_id":"PX9","type":"X","sponsor_category":"Y","approved_amount":0}`)))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"approved_amount":"must be at least 1"`) {
		t.Fatalf("invalid amount = %d %s", w.Code, w.Body.String())
	}
}

func importRequest(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestImportUpsertsAndReportsRowErrors(t *testing.T) {
	svc, db, store := newService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, admin, px("PX1", 100), listquery.Params{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sheet := strings.Join([]string{
		"Project ID,Title,Type,Sponsor Category,Approved Amount,Start Date",
		`PX1,Updated title,UNIVERSITY GRANT,NATIONAL,"1,500",2024-01-15`,
		"PX2,New grant,INDUSTRY,INTERNATIONAL,2000,15.02.2024",
		"PX3,No amount,INDUSTRY,INTERNATIONAL,,",
		"PX2,Duplicate,INDUSTRY,INTERNATIONAL,10,",
	}, "\n")
	res, err := svc.Import(ctx, admin, importRequest(t, "grants.csv", sheet), listquery.Params{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	rep := res.Data
	if rep.Total != 4 || rep.Created != 1 || rep.Updated != 1 || len(rep.Failed) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Failed[0].Row != 4 || rep.Failed[0].Errors["approved_amount"] == "" {
		t.Fatalf("first failure = %+v", rep.Failed[0])
	}
	if rep.Failed[1].Row != 5 || !strings.Contains(rep.Failed[1].Errors["project_id"], "row 3") {
		t.Fatalf("duplicate failure = %+v", rep.Failed[1])
	}

	var g Grant
	if err := db.Where("project_id = ?", "PX1").First(&g).Error; err != nil {
		t.Fatalf("load PX1: %v", err)
	}
	if g.Title != "Updated title" || g.ApprovedAmount != 1500 {
		t.Fatalf("PX1 = %+v", g)
	}
	if err := db.Where("project_id = ?", "PX2").First(&g).Error; err != nil || g.StartDate == nil || g.StartDate.Format("2006-01-02") != "2024-02-15" {
		t.Fatalf("PX2 = %+v, %v", g, err)
	}
	if res.List.TotalCount != 2 {
		t.Fatalf("list total = %d", res.List.TotalCount)
	}

	st, _ := store.Store(storage.BucketGrants)
	if _, err := st.Head(ctx, rep.File); err != nil {
		t.Fatalf("uploaded sheet not stored: %v", err)
	}
}

func TestImportRejectsXLS(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Import(context.Background(), admin, importRequest(t, "grants.xls", "binary"), listquery.Params{})
	fe, ok := validation.AsFieldErrors(err)
	if !ok || !strings.Contains(fe["file"], ".xls") {
		t.Fatalf("err = %v", err)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-03-01": "2024-03-01",
		"01.03.2024": "2024-03-01",
		"45352":      "2024-03-01",
		"garbage":    "garbage",
	}
	for in, want := range cases {
		if got := normalizeDate(in); got != want {
			t.Fatalf("normalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}

type brokenUpsert struct {
	Repository
}

func (brokenUpsert) Upsert(context.Context, []Grant) (int, error) {
	return 0, errors.New("database is locked")
}

func TestImportRemovesSheetWhenUpsertFails(t *testing.T) {
	db := testutil.NewDB(t, &Grant{}, &auditlog.AuditLog{})
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(db)), changefeed.NewLocal())
	store := storage.NewMemoryService("http://portal.test")
	svc := NewService(brokenUpsert{NewRepository(db)}, rec, store)

	sheet := "Project ID,Type,Sponsor Category,Approved Amount\nPX1,INDUSTRY,NATIONAL,100"
	if _, err := svc.Import(context.Background(), admin, importRequest(t, "grants.csv", sheet), listquery.Params{}); err == nil {
		t.Fatalf("expected upsert error")
	}
	files, err := svc.ImportFiles(context.Background())
	if err != nil {
		t.Fatalf("list imports: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("sheet left behind after failed import: %+v", files)
	}
}

func TestImportFilesListsStoredSheets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newService(t)
	sheet := "Project ID,Type,Sponsor Category,Approved Amount\nPX1,INDUSTRY,NATIONAL,100"
	res, err := svc.Import(context.Background(), admin, importRequest(t, "march-grants.csv", sheet), listquery.Params{})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	r := gin.New()
	r.GET("/admin/grants/imports", NewHandler(svc).ListImportFiles)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/grants/imports", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Data []storage.File `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Name != "march-grants.csv" || body.Data[0].Path != res.Data.File {
		t.Fatalf("imports = %+v", body.Data)
	}
}
