// Package charts computes the aggregated series behind the portal's
// dashboard charts.
package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/database"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/event"
	"github.com/uniresearch/research-portal-backend/internal/grant"
	"github.com/uniresearch/research-portal-backend/internal/lab"
	"github.com/uniresearch/research-portal-backend/internal/publication"
)

const unspecified = "Unspecified"

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthlyTotal is one month of a year series. Cumulative is the running
// total from January.
type MonthlyTotal struct {
	Month      int     `json:"month"`
	Label      string  `json:"label"`
	Count      int64   `json:"count"`
	Amount     float64 `json:"amount"`
	Cumulative float64 `json:"cumulative"`
}

// GroupTotal is one bar or slice: rows grouped by Label.
type GroupTotal struct {
	Label  string  `json:"label"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount,omitempty"`
}

type YearCount struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

type Summary struct {
	Events         int64   `json:"events"`
	UpcomingEvents int64   `json:"upcoming_events"`
	Grants         int64   `json:"grants"`
	ApprovedAmount float64 `json:"approved_amount"`
	Publications   int64   `json:"publications"`
	Labs           int64   `json:"labs"`
	Equipment      int64   `json:"equipment"`
}

// resources whose writes change at least one chart
var chartResources = map[string]bool{
	event.Kind.Resource:       true,
	grant.Kind.Resource:       true,
	publication.Kind.Resource: true,
	lab.Kind.Resource:         true,
	equipment.Kind.Resource:   true,
}

type Service struct {
	DB    *gorm.DB
	Cache Cache
	Now   func() time.Time
}

func NewService(db *gorm.DB, cache Cache) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Service{DB: db, Cache: cache, Now: time.Now}
}

// Invalidate is a change feed subscriber: any write to a charted resource
// drops the cached series.
func (s *Service) Invalidate(ch changefeed.Change) {
	if !chartResources[ch.Resource] {
		return
	}
	s.Cache.Flush(context.Background())
	log.Printf("🧹 chart cache cleared after %s %s", ch.Resource, ch.Action)
}

func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	if raw, ok := s.Cache.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		s.Cache.Set(ctx, key, raw)
	}
	return v, nil
}

func within(db *gorm.DB, column string, w Window) *gorm.DB {
	if !w.From.IsZero() {
		db = db.Where(column+" >= ?", w.From)
	}
	if !w.To.IsZero() {
		db = db.Where(column+" < ?", w.To)
	}
	return db
}

func yearWindow(year int) Window {
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return Window{From: from, To: from.AddDate(1, 0, 0)}
}

type monthRow struct {
	Month  int
	Count  int64
	Amount float64
}

// fillMonths spreads grouped rows over 12 buckets and accumulates.
func fillMonths(rows []monthRow) []MonthlyTotal {
	out := make([]MonthlyTotal, 12)
	for i := range out {
		out[i] = MonthlyTotal{Month: i + 1, Label: monthLabels[i]}
	}
	for _, r := range rows {
		if r.Month < 1 || r.Month > 12 {
			continue
		}
		out[r.Month-1].Count = r.Count
		out[r.Month-1].Amount = r.Amount
	}
	var running float64
	for i := range out {
		running += out[i].Amount
		out[i].Cumulative = running
	}
	return out
}

func (s *Service) groupBy(ctx context.Context, model interface{}, column, dateColumn string, w Window, withAmount bool) ([]GroupTotal, error) {
	sel := column + " AS label, COUNT(*) AS count"
	order := "count DESC"
	if withAmount {
		sel += ", COALESCE(SUM(approved_amount), 0) AS amount"
		order = "amount DESC"
	}
	var rows []GroupTotal
	q := within(s.DB.WithContext(ctx).Model(model), dateColumn, w)
	if err := q.Select(sel).Group(column).Order(order).Order(column).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("group %s: %w", column, err)
	}
	for i := range rows {
		if rows[i].Label == "" {
			rows[i].Label = unspecified
		}
	}
	if rows == nil {
		rows = []GroupTotal{}
	}
	return rows, nil
}

// ===========================
// 💰 Grants
func (s *Service) GrantsMonthly(ctx context.Context, year int) ([]MonthlyTotal, error) {
	return cached(ctx, s, "grants:monthly:"+strconv.Itoa(year), func() ([]MonthlyTotal, error) {
		month := database.MonthOf(s.DB, "start_date")
		var rows []monthRow
		q := within(s.DB.WithContext(ctx).Model(&grant.Grant{}), "start_date", yearWindow(year))
		err := q.Select(month + " AS month, COUNT(*) AS count, COALESCE(SUM(approved_amount), 0) AS amount").
			Group(month).Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("grants monthly: %w", err)
		}
		return fillMonths(rows), nil
	})
}

func (s *Service) GrantsBySponsor(ctx context.Context, w Window) ([]GroupTotal, error) {
	return cached(ctx, s, "grants:sponsors:"+w.key(), func() ([]GroupTotal, error) {
		return s.groupBy(ctx, &grant.Grant{}, "sponsor_category", "start_date", w, true)
	})
}

func (s *Service) GrantsByType(ctx context.Context, w Window) ([]GroupTotal, error) {
	return cached(ctx, s, "grants:types:"+w.key(), func() ([]GroupTotal, error) {
		return s.groupBy(ctx, &grant.Grant{}, "type", "start_date", w, true)
	})
}

func (s *Service) GrantsByStatus(ctx context.Context, w Window) ([]GroupTotal, error) {
	return cached(ctx, s, "grants:statuses:"+w.key(), func() ([]GroupTotal, error) {
		return s.groupBy(ctx, &grant.Grant{}, "status", "start_date", w, false)
	})
}

// ===========================
// 📚 Publications
func (s *Service) PublicationsByCategory(ctx context.Context, w Window) ([]GroupTotal, error) {
	return cached(ctx, s, "publications:categories:"+w.key(), func() ([]GroupTotal, error) {
		return s.groupBy(ctx, &publication.Publication{}, "category", "date", w, false)
	})
}

func (s *Service) PublicationsByLevel(ctx context.Context, w Window) ([]GroupTotal, error) {
	return cached(ctx, s, "publications:levels:"+w.key(), func() ([]GroupTotal, error) {
		return s.groupBy(ctx, &publication.Publication{}, "level", "date", w, false)
	})
}

// PublicationsByYear counts dated publications per calendar year, oldest first.
func (s *Service) PublicationsByYear(ctx context.Context) ([]YearCount, error) {
	return cached(ctx, s, "publications:years", func() ([]YearCount, error) {
		year := database.YearOf(s.DB, "date")
		rows := []YearCount{}
		err := s.DB.WithContext(ctx).Model(&publication.Publication{}).
			Where("date IS NOT NULL").
			Select(year + " AS year, COUNT(*) AS count").
			Group(year).Order("year").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("publications by year: %w", err)
		}
		return rows, nil
	})
}

// ===========================
// 📆 Events
func (s *Service) EventsByCategory(ctx context.Context, w Window) ([]GroupTotal, error) {
	return cached(ctx, s, "events:categories:"+w.key(), func() ([]GroupTotal, error) {
		return s.groupBy(ctx, &event.Event{}, "category", "date", w, false)
	})
}

func (s *Service) EventsMonthly(ctx context.Context, year int) ([]MonthlyTotal, error) {
	return cached(ctx, s, "events:monthly:"+strconv.Itoa(year), func() ([]MonthlyTotal, error) {
		month := database.MonthOf(s.DB, "date")
		var rows []monthRow
		q := within(s.DB.WithContext(ctx).Model(&event.Event{}), "date", yearWindow(year))
		if err := q.Select(month + " AS month, COUNT(*) AS count").Group(month).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("events monthly: %w", err)
		}
		out := fillMonths(rows)
		// events carry no amount; the running total is a running count
		var running float64
		for i := range out {
			running += float64(out[i].Count)
			out[i].Cumulative = running
		}
		return out, nil
	})
}

// ===========================
// 📊 Dashboard summary
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	now := s.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return cached(ctx, s, "summary:"+today.Format("20060102"), func() (Summary, error) {
		var sum Summary
		db := s.DB.WithContext(ctx)
		counts := []struct {
			model interface{}
			dst   *int64
		}{
			{&event.Event{}, &sum.Events},
			{&grant.Grant{}, &sum.Grants},
			{&publication.Publication{}, &sum.Publications},
			{&lab.Lab{}, &sum.Labs},
			{&equipment.Equipment{}, &sum.Equipment},
		}
		for _, c := range counts {
			if err := db.Model(c.model).Count(c.dst).Error; err != nil {
				return sum, fmt.Errorf("summary count: %w", err)
			}
		}
		if err := db.Model(&event.Event{}).Where("date >= ?", today).Count(&sum.UpcomingEvents).Error; err != nil {
			return sum, fmt.Errorf("summary upcoming events: %w", err)
		}
		if err := db.Model(&grant.Grant{}).Select("COALESCE(SUM(approved_amount), 0)").Scan(&sum.ApprovedAmount).Error; err != nil {
			return sum, fmt.Errorf("summary approved amount: %w", err)
		}
		return sum, nil
	})
}
