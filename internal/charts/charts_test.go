package charts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/event"
	"github.com/uniresearch/research-portal-backend/internal/grant"
	"github.com/uniresearch/research-portal-backend/internal/lab"
	"github.com/uniresearch/research-portal-backend/internal/publication"
	"github.com/uniresearch/research-portal-backend/internal/testutil"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func setup(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t, &grant.Grant{}, &publication.Publication{}, &event.Event{},
		&equipment.Equipment{}, &lab.Lab{}, &equipment.LabEquipment{})

	grants := []grant.Grant{
		{ProjectID: "G1", Type: "UNIVERSITY GRANT", SponsorCategory: "NATIONAL", Status: "Active", ApprovedAmount: 1000, StartDate: day(2024, 1, 10)},
		{ProjectID: "G2", Type: "INDUSTRY", SponsorCategory: "INTERNATIONAL", Status: "Active", ApprovedAmount: 5000, StartDate: day(2024, 3, 5)},
		{ProjectID: "G3", Type: "UNIVERSITY GRANT", SponsorCategory: "NATIONAL", Status: "Closed", ApprovedAmount: 2500, StartDate: day(2024, 3, 20)},
		{ProjectID: "G4", Type: "INDUSTRY", SponsorCategory: "", ApprovedAmount: 700, StartDate: day(2023, 12, 1)},
	}
	pubs := []publication.Publication{
		{RefNo: "P1", Title: "a", Category: "Q1", Level: "International", Date: day(2023, 5, 1)},
		{RefNo: "P2", Title: "b", Category: "Q1", Level: "National", Date: day(2024, 2, 1)},
		{RefNo: "P3", Title: "c", Category: "Q2", Level: "International", Date: day(2024, 6, 1)},
		{RefNo: "P4", Title: "d", Category: "Q2"},
	}
	events := []event.Event{
		{Title: "e1", Category: "Seminar", Date: *day(2024, 3, 1)},
		{Title: "e2", Category: "Seminar", Date: *day(2024, 3, 15)},
		{Title: "e3", Category: "Workshop", Date: *day(2024, 11, 2)},
	}
	for _, rows := range []interface{}{&grants, &pubs, &events} {
		if err := db.Create(rows).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	s := NewService(db, NewMemoryCache())
	s.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return s, db
}

func TestGrantsMonthlyIsCumulative(t *testing.T) {
	s, _ := setup(t)
	months, err := s.GrantsMonthly(context.Background(), 2024)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(months) != 12 {
		t.Fatalf("buckets = %d", len(months))
	}
	checks := []struct {
		month      int
		amount     float64
		cumulative float64
	}{
		{1, 1000, 1000},
		{2, 0, 1000},
		{3, 7500, 8500},
		{12, 0, 8500},
	}
	for _, c := range checks {
		got := months[c.month-1]
		if got.Amount != c.amount || got.Cumulative != c.cumulative {
			t.Fatalf("month %d = %+v, want amount %v cumulative %v", c.month, got, c.amount, c.cumulative)
		}
	}
	if months[2].Count != 2 || months[2].Label != "Mar" {
		t.Fatalf("march = %+v", months[2])
	}
}

func TestGroupings(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	sponsors, err := s.GrantsBySponsor(ctx, Window{})
	if err != nil {
		t.Fatalf("sponsors: %v", err)
	}
	if len(sponsors) != 3 || sponsors[0].Label != "INTERNATIONAL" || sponsors[0].Amount != 5000 {
		t.Fatalf("sponsors = %+v", sponsors)
	}
	if sponsors[2].Label != unspecified || sponsors[2].Amount != 700 {
		t.Fatalf("blank sponsor = %+v", sponsors[2])
	}

	w, _ := DateRange(RangeYearly, "", "", s.Now())
	types, err := s.GrantsByType(ctx, w)
	if err != nil || len(types) != 2 || types[0].Label != "INDUSTRY" || types[0].Count != 1 {
		t.Fatalf("types in 2024 = %+v, %v", types, err)
	}

	years, err := s.PublicationsByYear(ctx)
	if err != nil || len(years) != 2 || years[0] != (YearCount{Year: 2023, Count: 1}) || years[1] != (YearCount{Year: 2024, Count: 2}) {
		t.Fatalf("years = %+v, %v", years, err)
	}

	levels, err := s.PublicationsByLevel(ctx, Window{})
	if err != nil || levels[0].Label != "International" || levels[0].Count != 2 {
		t.Fatalf("levels = %+v, %v", levels, err)
	}

	evMonths, err := s.EventsMonthly(ctx, 2024)
	if err != nil || evMonths[2].Count != 2 || evMonths[10].Cumulative != 3 {
		t.Fatalf("events monthly = %+v, %v", evMonths, err)
	}
}

func TestSummary(t *testing.T) {
	s, _ := setup(t)
	sum, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := Summary{Events: 3, UpcomingEvents: 1, Grants: 4, ApprovedAmount: 9200, Publications: 4}
	if sum != want {
		t.Fatalf("summary = %+v, want %+v", sum, want)
	}
}

func TestCacheClearedByChangeFeed(t *testing.T) {
	s, db := setup(t)
	ctx := context.Background()
	feed := changefeed.NewLocal()
	feed.Subscribe(s.Invalidate)

	before, _ := s.Summary(ctx)
	db.Create(&grant.Grant{ProjectID: "G5", Type: "INDUSTRY", SponsorCategory: "NATIONAL", ApprovedAmount: 800})

	stale, _ := s.Summary(ctx)
	if stale.Grants != before.Grants {
		t.Fatalf("expected cached summary, got %+v", stale)
	}

	feed.Publish(ctx, changefeed.Change{Resource: "partners", Action: changefeed.ActionCreated})
	if again, _ := s.Summary(ctx); again.Grants != before.Grants {
		t.Fatalf("unrelated change cleared the cache")
	}

	feed.Publish(ctx, changefeed.Change{Resource: "grants", Action: changefeed.ActionCreated, ID: 5})
	fresh, _ := s.Summary(ctx)
	if fresh.Grants != before.Grants+1 || fresh.ApprovedAmount != before.ApprovedAmount+800 {
		t.Fatalf("fresh = %+v, before = %+v", fresh, before)
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set(context.Background(), "k", []byte("v"))
	if _, ok := c.Get(context.Background(), "k"); !ok {
		t.Fatal("missing fresh entry")
	}
	now = now.Add(cacheTTL + time.Second)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("expired entry returned")
	}
}

func TestDateRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	tests := []struct {
		preset, start, end string
		from, to           string
	}{
		{RangeDaily, "", "", "2024-06-15", "2024-06-16"},
		{RangeWeekly, "", "", "2024-06-09", "2024-06-16"},
		{RangeMonthly, "", "", "2024-06-01", "2024-07-01"},
		{RangeYearly, "", "", "2024-01-01", "2025-01-01"},
		{RangeCustom, "2024-02-01", "2024-02-29", "2024-02-01", "2024-03-01"},
	}
	for _, tt := range tests {
		w, err := DateRange(tt.preset, tt.start, tt.end, now)
		if err != nil {
			t.Fatalf("%s: %v", tt.preset, err)
		}
		if w.From.Format("2006-01-02") != tt.from || w.To.Format("2006-01-02") != tt.to {
			t.Fatalf("%s = %v..%v, want %s..%s", tt.preset, w.From, w.To, tt.from, tt.to)
		}
	}

	if w, err := DateRange("", "", "", now); err != nil || !w.IsZero() {
		t.Fatalf("empty preset = %+v, %v", w, err)
	}
	_, err := DateRange(RangeCustom, "2024-03-01", "2024-02-01", now)
	if fe, ok := validation.AsFieldErrors(err); !ok || fe["end_date"] == "" {
		t.Fatalf("reversed custom = %v", err)
	}
	if _, err := DateRange("fortnightly", "", "", now); err == nil {
		t.Fatal("unknown preset accepted")
	}
}

func TestHandlerValidatesYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, _ := setup(t)
	r := gin.New()
	NewHandler(s).Register(r.Group("/api/v1"))

	for path, want := range map[string]int{
		"/api/v1/charts/grants/monthly?year=abc":     http.StatusBadRequest,
		"/api/v1/charts/grants/monthly":              http.StatusOK,
		"/api/v1/charts/grants/sponsors?range=weird": http.StatusBadRequest,
		"/api/v1/charts/publications/years":          http.StatusOK,
		"/api/v1/charts/summary":                     http.StatusOK,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s = %d, want %d (%s)", path, w.Code, want, w.Body.String())
		}
	}
}
