package event

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
	"time"

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

var (
	editor = mutation.Request{Access: middleware.AccessContext{UserID: 7, RoleName: "editor", PermissionType: middleware.PermissionFull}, IP: "10.0.0.1"}
	viewer = mutation.Request{Access: middleware.AccessContext{UserID: 8, RoleName: "viewer", PermissionType: middleware.PermissionReadonly}}
)

type fixture struct {
	db      *gorm.DB
	svc     *Service
	store   *storage.Service
	changes []changefeed.Change
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testutil.NewDB(t, &Event{}, &auditlog.AuditLog{})}
	feed := changefeed.NewLocal()
	feed.Subscribe(func(ch changefeed.Change) { f.changes = append(f.changes, ch) })
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(f.db)), feed)
	f.store = storage.NewMemoryService("http://portal.test")
	f.svc = NewService(NewRepository(f.db), rec, f.store)
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// five events between 2025-06-05 and 2025-08-10, one conference
func (f *fixture) seedSummer(t *testing.T) {
	t.Helper()
	rows := []Event{
		{Title: "AI Research Symposium", Date: day(2025, 6, 5), Category: "Seminar", Priority: "High", Status: "Upcoming"},
		{Title: "Grant Writing Workshop", Date: day(2025, 6, 20), Category: "Workshop", Priority: "Medium", Status: "Registration Open"},
		{Title: "Annual Research Conference", Date: day(2025, 7, 9), Category: "Conference", Priority: "High", Status: "Upcoming"},
		{Title: "Industry Networking Night", Date: day(2025, 7, 25), Category: "Networking", Priority: "Low", Status: "Upcoming"},
		{Title: "Innovation Challenge", Date: day(2025, 8, 10), Category: "Competition", Priority: "Medium", Status: "Upcoming"},
	}
	if err := f.db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *fixture) auditCount(t *testing.T, action, status string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&auditlog.AuditLog{}).Where("action = ? AND status = ?", action, status).Count(&n).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	return n
}

func TestConferenceFilterReturnsSingleRow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	f.seedSummer(t)

	r := gin.New()
	r.GET("/events", NewHandler(f.svc).ListEvents)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events?category=Conference&page=1&pageSize=9", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var page listquery.Page[Event]
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalCount != 1 || len(page.Data) != 1 || page.Data[0].Category != "Conference" {
		t.Fatalf("page = %+v", page)
	}
}

func TestPublicListIsChronological(t *testing.T) {
	f := newFixture(t)
	f.seedSummer(t)

	page, err := f.svc.ListPublic(context.Background(), listquery.Params{Filters: map[string]string{"category": "all"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 5 || page.PageSize != 9 {
		t.Fatalf("total = %d size = %d", page.TotalCount, page.PageSize)
	}
	for i := 1; i < len(page.Data); i++ {
		if page.Data[i].Date.Before(page.Data[i-1].Date) {
			t.Fatalf("row %d out of date order", i)
		}
	}

	july, err := f.svc.ListPublic(context.Background(), listquery.Params{Filters: map[string]string{"year": "2025", "month": "7"}})
	if err != nil || july.TotalCount != 2 {
		t.Fatalf("july = %+v, %v", july, err)
	}
}

func TestInvalidMonthIsFieldError(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListPublic(context.Background(), listquery.Params{Filters: map[string]string{"year": "2025", "month": "13"}})
	fe, ok := validation.AsFieldErrors(err)
	if !ok || fe["month"] == "" {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateRecordsAuditAndRefetchesList(t *testing.T) {
	f := newFixture(t)
	f.seedSummer(t)

	in := EventInput{Title: "Quantum Seminar", Date: "2025-09-01", Time: "14:30", Category: "Seminar", Status: "Registration Open"}
	p := listquery.Params{Page: 1, PageSize: 3, Filters: map[string]string{"category": "Seminar"}}
	res, err := f.svc.Create(context.Background(), editor, in, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Data.ID == 0 || res.Data.Priority != "Medium" {
		t.Fatalf("created = %+v", res.Data)
	}
	if res.List.TotalCount != 2 || res.List.PageSize != 3 {
		t.Fatalf("refetched list = %+v", res.List)
	}
	if n := f.auditCount(t, "EVENT_CREATED", auditlog.StatusSuccess); n != 1 {
		t.Fatalf("audit success rows = %d", n)
	}
	if len(f.changes) != 1 || f.changes[0].Resource != "events" || f.changes[0].ID != res.Data.ID {
		t.Fatalf("changes = %+v", f.changes)
	}
}

func TestCreateValidatesEnumsAndDates(t *testing.T) {
	f := newFixture(t)
	in := EventInput{Title: "Bad", Date: "01/09/2025", Category: "Party", Priority: "Urgent"}
	_, err := f.svc.Create(context.Background(), editor, in, listquery.Params{})
	fe, ok := validation.AsFieldErrors(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	for _, field := range []string{"date", "category", "priority"} {
		if fe[field] == "" {
			t.Fatalf("missing %s error in %v", field, fe)
		}
	}
	if n := f.auditCount(t, "EVENT_CREATED", auditlog.StatusFailure); n != 1 {
		t.Fatalf("audit failure rows = %d", n)
	}
	if len(f.changes) != 0 {
		t.Fatalf("failed create published %v", f.changes)
	}
}

func TestViewerCannotWrite(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), viewer, EventInput{Title: "x", Date: "2025-01-01", Category: "Seminar"}, listquery.Params{})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v", err)
	}
	var n int64
	f.db.Model(&Event{}).Count(&n)
	if n != 0 {
		t.Fatalf("events = %d", n)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	f.seedSummer(t)
	ctx := context.Background()

	res, err := f.svc.Update(ctx, editor, 3, EventInput{Title: "Annual Research Conference 2025", Date: "2025-07-10", Category: "Conference", Status: "Completed"}, listquery.Params{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Data.Status != "Completed" || !res.Data.Date.Equal(day(2025, 7, 10)) {
		t.Fatalf("updated = %+v", res.Data)
	}

	if _, err := f.svc.Update(ctx, editor, 99, EventInput{Title: "x", Date: "2025-01-01", Category: "Seminar"}, listquery.Params{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("update missing err = %v", err)
	}

	del, err := f.svc.Delete(ctx, editor, 3, listquery.Params{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if del.List.TotalCount != 4 {
		t.Fatalf("list after delete = %d", del.List.TotalCount)
	}
	if _, err := f.svc.Delete(ctx, editor, 3, listquery.Params{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func multipartImage(t *testing.T, field, filename string, body []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write(body)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadImageReplacesPrevious(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	f.seedSummer(t)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("access_context", editor.Access); c.Next() })
	r.POST("/admin/events/:id/image", NewHandler(f.svc).UploadImage)

	upload := func(name string) *httptest.ResponseRecorder {
		body, ct := multipartImage(t, "image", name, []byte("fake image bytes"))
		req := httptest.NewRequest(http.MethodPost, "/admin/events/1/image", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := upload("poster.png"); w.Code != http.StatusOK {
		t.Fatalf("first upload = %d %s", w.Code, w.Body.String())
	}
	first, _ := f.svc.GetByID(context.Background(), 1)
	if !strings.HasPrefix(first.ImageURL, "http://portal.test/storage/event-pics/") {
		t.Fatalf("image url = %q", first.ImageURL)
	}

	if w := upload("poster2.jpg"); w.Code != http.StatusOK {
		t.Fatalf("second upload = %d %s", w.Code, w.Body.String())
	}
	second, _ := f.svc.GetByID(context.Background(), 1)
	st, _ := f.store.Store(storage.BucketEventPics)
	objs, _ := st.List(context.Background(), "")
	if len(objs) != 1 || objs[0].Key != second.ImagePath {
		t.Fatalf("objects = %+v, want only %s", objs, second.ImagePath)
	}

	if w := upload("notes.txt"); w.Code != http.StatusBadRequest {
		t.Fatalf("txt upload = %d", w.Code)
	}
}

func TestExportTableUsesFilters(t *testing.T) {
	f := newFixture(t)
	f.seedSummer(t)

	tbl, err := f.svc.ExportTable(context.Background(), listquery.Params{Filters: map[string]string{"priority": "High"}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(tbl.Rows) != 2 || len(tbl.Rows[0]) != len(tbl.Headers) {
		t.Fatalf("table = %+v", tbl)
	}
}
