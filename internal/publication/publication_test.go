package publication

import (
	"context"
	"errors"
	"testing"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/auditlog"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/internal/validation"
	"github.com/uniresearch/research-portal-backend/middleware"
)

var editor = mutation.Request{Access: middleware.AccessContext{UserID: 2, RoleName: "editor", PermissionType: middleware.PermissionFull}}

func newService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewDB(t, &Publication{}, &auditlog.AuditLog{})
	rec := mutation.NewRecorder(auditlog.NewService(auditlog.NewRepository(db)), changefeed.NewLocal())
	return NewService(NewRepository(db), rec)
}

func seed(t *testing.T, s *Service) {
	t.Helper()
	rows := []PublicationInput{
		{RefNo: "P-001", Title: "Graph neural networks for crops", Date: "2023-04-01", Level: "International", Type: "Journal Article", Category: "Q1", AuthorName: "A. Rahman"},
		{RefNo: "P-002", Title: "Edge caching survey", Date: "2024-09-12", Level: "National", Type: "Conference Paper", Category: "Scopus", AuthorName: "L. Chen"},
		{RefNo: "P-003", Title: "Soil sensor calibration", Date: "2024-01-20", Level: "International", Type: "Journal Article", Category: "Q2", CoAuthors: "A. Rahman"},
	}
	for _, in := range rows {
		if _, err := s.Create(context.Background(), editor, in, listquery.Params{}); err != nil {
			t.Fatalf("seed %s: %v", in.RefNo, err)
		}
	}
}

func TestPublicListNewestFirst(t *testing.T) {
	s := newService(t)
	seed(t, s)

	page, err := s.ListPublic(context.Background(), listquery.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"P-002", "P-003", "P-001"}
	if len(page.Data) != len(want) || page.PageSize != 10 {
		t.Fatalf("page = %+v", page)
	}
	for i, ref := range want {
		if page.Data[i].RefNo != ref {
			t.Fatalf("row %d = %s, want %s", i, page.Data[i].RefNo, ref)
		}
	}
}

func TestFiltersCombine(t *testing.T) {
	s := newService(t)
	seed(t, s)

	tests := []struct {
		name    string
		filters map[string]string
		want    int64
	}{
		{"level", map[string]string{"level": "International"}, 2},
		{"level and year", map[string]string{"level": "International", "year": "2024"}, 1},
		{"search co-authors", map[string]string{"query": "rahman"}, 2},
		{"sentinels", map[string]string{"level": "all", "category": "ANY", "query": " "}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListPublic(context.Background(), listquery.Params{Filters: tt.filters})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if page.TotalCount != tt.want {
				t.Fatalf("total = %d, want %d", page.TotalCount, tt.want)
			}
		})
	}
}

func TestCreateValidation(t *testing.T) {
	s := newService(t)
	_, err := s.Create(context.Background(), editor, PublicationInput{Level: "Galactic", Date: "yesterday"}, listquery.Params{})
	fe, ok := validation.AsFieldErrors(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	for _, field := range []string{"ref_no", "title", "level", "date"} {
		if fe[field] == "" {
			t.Fatalf("missing %s in %v", field, fe)
		}
	}
}

func TestDuplicateRefNoAndDelete(t *testing.T) {
	s := newService(t)
	seed(t, s)
	ctx := context.Background()

	_, err := s.Create(ctx, editor, PublicationInput{RefNo: "P-001", Title: "again"}, listquery.Params{})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) || conflict.Field != "ref_no" {
		t.Fatalf("err = %v", err)
	}

	res, err := s.Delete(ctx, editor, 1, listquery.Params{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.List.TotalCount != 2 || res.Data.RefNo != "P-001" {
		t.Fatalf("delete result = %+v", res)
	}
	if _, err := s.GetByID(ctx, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get deleted = %v", err)
	}
}

func TestExportTable(t *testing.T) {
	s := newService(t)
	seed(t, s)
	tbl, err := s.ExportTable(context.Background(), listquery.Params{Filters: map[string]string{"type": "Journal Article"}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0][0] != "P-003" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
}
