package listquery_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

type article struct {
	ID          uint `gorm:"primaryKey"`
	Title       string
	Category    string
	PublishedAt time.Time
	CreatedAt   time.Time
}

var articleSpec = listquery.Spec{
	Resource:        "articles",
	SearchColumns:   []string{"title"},
	Enums:           map[string]string{"category": "category"},
	DateColumn:      "published_at",
	Order:           []listquery.Order{{Column: "published_at"}},
	DefaultPageSize: 5,
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSentinelFiltersAreOmitted(t *testing.T) {
	p := listquery.Params{Filters: map[string]string{
		"query":    "   ",
		"category": "All",
		"year":     "any",
		"month":    "",
	}}
	b, err := articleSpec.Build(articleSpec.Normalize(p))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := b.Clauses(); len(got) != 0 {
		t.Fatalf("expected no clauses, got %v", got)
	}
}

func TestFiltersAreConjunctive(t *testing.T) {
	db := testutil.NewDB(t, &article{})
	rows := []article{
		{Title: "Smart grid workshop", Category: "Workshop", PublishedAt: day(2024, 3, 1)},
		{Title: "Smart grid summit", Category: "Conference", PublishedAt: day(2024, 3, 2)},
		{Title: "Robotics workshop", Category: "Workshop", PublishedAt: day(2024, 3, 3)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	p := articleSpec.Normalize(listquery.Params{Filters: map[string]string{"query": "GRID", "category": "Workshop"}})
	b, err := articleSpec.Build(p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	page, err := listquery.Fetch[article](context.Background(), db, b, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.TotalCount != 1 || len(page.Data) != 1 || page.Data[0].Title != "Smart grid workshop" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestYearMonthNarrowsToCalendarMonth(t *testing.T) {
	db := testutil.NewDB(t, &article{})
	rows := []article{
		{Title: "feb", PublishedAt: day(2024, 2, 29)},
		{Title: "mar-1", PublishedAt: day(2024, 3, 1)},
		{Title: "mar-31", PublishedAt: time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)},
		{Title: "apr", PublishedAt: day(2024, 4, 1)},
		{Title: "other-year", PublishedAt: day(2023, 3, 15)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	p := articleSpec.Normalize(listquery.Params{Filters: map[string]string{"year": "2024", "month": "3"}})
	b, err := articleSpec.Build(p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	page, err := listquery.Fetch[article](context.Background(), db, b, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.TotalCount != 2 {
		t.Fatalf("expected 2 March rows, got %d", page.TotalCount)
	}
	if page.Data[0].Title != "mar-1" || page.Data[1].Title != "mar-31" {
		t.Fatalf("unexpected order: %s, %s", page.Data[0].Title, page.Data[1].Title)
	}

	// month without year is ignored
	p = articleSpec.Normalize(listquery.Params{Filters: map[string]string{"month": "3"}})
	b, err = articleSpec.Build(p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	page, err = listquery.Fetch[article](context.Background(), db, b, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.TotalCount != int64(len(rows)) {
		t.Fatalf("expected all %d rows, got %d", len(rows), page.TotalCount)
	}
}

func TestPagesConcatenateToFullSet(t *testing.T) {
	db := testutil.NewDB(t, &article{})
	var rows []article
	for i := 0; i < 23; i++ {
		// several rows share a date so the id tiebreak matters
		rows = append(rows, article{Title: fmt.Sprintf("a%02d", i), PublishedAt: day(2024, 1, 1+i/4)})
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	all, err := func() ([]article, error) {
		b, err := articleSpec.Build(articleSpec.Normalize(listquery.Params{}))
		if err != nil {
			return nil, err
		}
		return listquery.FetchAll[article](context.Background(), db, b)
	}()
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}

	var paged []uint
	for pageNo := 1; ; pageNo++ {
		p := articleSpec.Normalize(listquery.Params{Page: pageNo})
		b, err := articleSpec.Build(p)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		page, err := listquery.Fetch[article](context.Background(), db, b, p)
		if err != nil {
			t.Fatalf("fetch page %d: %v", pageNo, err)
		}
		if page.TotalCount != 23 || page.TotalPages != 5 {
			t.Fatalf("page %d: total=%d pages=%d", pageNo, page.TotalCount, page.TotalPages)
		}
		if len(page.Data) == 0 {
			break
		}
		for _, a := range page.Data {
			paged = append(paged, a.ID)
		}
	}

	if len(paged) != len(all) {
		t.Fatalf("paged %d rows, full set has %d", len(paged), len(all))
	}
	for i := range all {
		if paged[i] != all[i].ID {
			t.Fatalf("row %d: paged id %d, full id %d", i, paged[i], all[i].ID)
		}
	}
}

func TestPageBeyondLastKeepsTotal(t *testing.T) {
	db := testutil.NewDB(t, &article{})
	rows := []article{{Title: "one", PublishedAt: day(2024, 1, 1)}, {Title: "two", PublishedAt: day(2024, 1, 2)}}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	p := articleSpec.Normalize(listquery.Params{Page: 9})
	b, _ := articleSpec.Build(p)
	page, err := listquery.Fetch[article](context.Background(), db, b, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.Data == nil || len(page.Data) != 0 {
		t.Fatalf("expected empty non-nil data, got %v", page.Data)
	}
	if page.TotalCount != 2 || page.Page != 9 {
		t.Fatalf("unexpected page meta: %+v", page)
	}

	// (page-1)*pageSize wraps negative for this page number
	huge := listquery.ParseParams(url.Values{"page": {"92233720368547760"}, "pageSize": {"100"}}, articleSpec.DefaultPageSize)
	b, _ = articleSpec.Build(huge)
	page, err = listquery.Fetch[article](context.Background(), db, b, huge)
	if err != nil {
		t.Fatalf("fetch huge page: %v", err)
	}
	if len(page.Data) != 0 || page.TotalCount != 2 || page.TotalPages != 1 {
		t.Fatalf("huge page returned %d rows, meta %+v", len(page.Data), page)
	}
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	db := testutil.NewDB(t, &article{})
	rows := []article{{Title: "100% renewable"}, {Title: "1000 sensors"}, {Title: "snake_case"}, {Title: "snakeXcase"}}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	for term, want := range map[string]string{"100%": "100% renewable", "snake_": "snake_case"} {
		p := articleSpec.Normalize(listquery.Params{Filters: map[string]string{"query": term}})
		b, _ := articleSpec.Build(p)
		page, err := listquery.Fetch[article](context.Background(), db, b, p)
		if err != nil {
			t.Fatalf("fetch %q: %v", term, err)
		}
		if page.TotalCount != 1 || page.Data[0].Title != want {
			t.Fatalf("search %q: got %+v", term, page.Data)
		}
	}
}

func TestInvalidFilterValuesAreFieldErrors(t *testing.T) {
	cases := []struct {
		filters map[string]string
		field   string
	}{
		{map[string]string{"year": "20x4"}, "year"},
		{map[string]string{"year": "2024", "month": "13"}, "month"},
		{map[string]string{"date_from": "01/02/2024"}, "date_from"},
		{map[string]string{"date_from": "2024-05-02", "date_to": "2024-05-01"}, "date_from"},
	}
	for _, tc := range cases {
		_, err := articleSpec.Build(articleSpec.Normalize(listquery.Params{Filters: tc.filters}))
		fe, ok := validation.AsFieldErrors(err)
		if !ok {
			t.Fatalf("%v: expected field errors, got %v", tc.filters, err)
		}
		if _, ok := fe[tc.field]; !ok {
			t.Fatalf("%v: expected error on %s, got %v", tc.filters, tc.field, fe)
		}
	}

	b := listquery.New("labs").EqualsID("equipment_id", "equipment_id", "abc")
	if fe, ok := validation.AsFieldErrors(b.Err()); !ok || fe["equipment_id"] == "" {
		t.Fatalf("expected equipment_id error, got %v", b.Err())
	}
}

func TestFetchOrEmptyOnQueryFailure(t *testing.T) {
	db := testutil.NewDB(t) // no tables

	p := articleSpec.Normalize(listquery.Params{Page: 2})
	b, _ := articleSpec.Build(p)
	page := listquery.FetchOrEmpty[article](context.Background(), db, b, p)

	if !page.Failed() {
		t.Fatalf("expected failed page")
	}
	if page.TotalCount != 0 || len(page.Data) != 0 || page.Data == nil {
		t.Fatalf("expected empty page, got %+v", page)
	}
	if page.Page != 2 || page.PageSize != 5 {
		t.Fatalf("expected paging echoed back, got %+v", page)
	}
}

func TestParseParams(t *testing.T) {
	p := listquery.ParseParams(url.Values{
		"page":         {"3"},
		"itemsPerPage": {"500"},
		"search":       {"lidar"},
		"category":     {"Workshop"},
	}, 9)
	if p.Page != 3 || p.PageSize != listquery.MaxPageSize {
		t.Fatalf("unexpected paging %d/%d", p.Page, p.PageSize)
	}
	if p.Get("query") != "lidar" || p.Get("category") != "Workshop" {
		t.Fatalf("unexpected filters %v", p.Filters)
	}

	p = listquery.ParseParams(url.Values{"page": {"zero"}, "category": {"all"}}, 9)
	if p.Page != 1 || p.PageSize != 9 {
		t.Fatalf("expected defaults, got %d/%d", p.Page, p.PageSize)
	}
	if p.Get("category") != "" {
		t.Fatalf("sentinel should read as empty")
	}
	if _, ok := p.Values()["category"]; ok {
		t.Fatalf("sentinel should not be re-encoded")
	}
}

type articleTag struct {
	ID        uint `gorm:"primaryKey"`
	ArticleID uint
	TagID     uint
}

func TestRelatedFilterUsesSubSelect(t *testing.T) {
	db := testutil.NewDB(t, &article{}, &articleTag{})
	rows := []article{
		{Title: "tagged", PublishedAt: day(2024, 1, 1)},
		{Title: "untagged", PublishedAt: day(2024, 1, 2)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	db.Create(&articleTag{ArticleID: rows[0].ID, TagID: 7})

	spec := articleSpec
	spec.Related = map[string]string{"tag_id": "id IN (SELECT article_id FROM article_tags WHERE tag_id = ?)"}

	p := spec.Normalize(listquery.Params{Filters: map[string]string{"tag_id": "7"}})
	b, err := spec.Build(p)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	page, err := listquery.Fetch[article](context.Background(), db, b, p)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.TotalCount != 1 || page.Data[0].Title != "tagged" {
		t.Fatalf("unexpected page: %+v", page)
	}

	if _, err := spec.Build(spec.Normalize(listquery.Params{Filters: map[string]string{"tag_id": "seven"}})); err == nil {
		t.Fatal("expected error for non-numeric tag_id")
	}
	b, _ = spec.Build(spec.Normalize(listquery.Params{Filters: map[string]string{"tag_id": "all"}}))
	if len(b.Clauses()) != 0 {
		t.Fatalf("sentinel produced clauses %v", b.Clauses())
	}
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	db := testutil.NewDB(t, &article{})
	rows := []article{{Title: "Ärztenetz Süd"}, {Title: "ZÜRICH robotics"}, {Title: "plain"}}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	for term, want := range map[string]string{"ärzte": "Ärztenetz Süd", "zürich": "ZÜRICH robotics", "SÜD": "Ärztenetz Süd"} {
		p := articleSpec.Normalize(listquery.Params{Filters: map[string]string{"query": term}})
		b, _ := articleSpec.Build(p)
		page, err := listquery.Fetch[article](context.Background(), db, b, p)
		if err != nil {
			t.Fatalf("fetch %q: %v", term, err)
		}
		if page.TotalCount != 1 || page.Data[0].Title != want {
			t.Fatalf("search %q: got %+v", term, page.Data)
		}
	}
}
