package listquery

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/metrics"
)

// Page is one page of rows plus the total number of matching rows.
type Page[T any] struct {
	Data       []T    `json:"data"`
	TotalCount int64  `json:"totalCount"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
	Error      string `json:"error,omitempty"`
}

// Failed reports whether the page is the fail-soft result of a query error
// rather than a genuinely empty result.
func (p Page[T]) Failed() bool { return p.Error != "" }

// Option tweaks the row query (never the count query).
type Option func(db *gorm.DB) *gorm.DB

// Preload eager-loads an association on the returned rows.
func Preload(association string) Option {
	return func(db *gorm.DB) *gorm.DB { return db.Preload(association) }
}

func emptyPage[T any](p Params) Page[T] {
	return Page[T]{Data: []T{}, Page: p.Page, PageSize: p.PageSize}
}

// Fetch runs the count query then, if the page is in range, the ordered page
// query. A page past the end returns no rows and the real total.
func Fetch[T any](ctx context.Context, db *gorm.DB, b *Builder, p Params, opts ...Option) (Page[T], error) {
	p = p.Normalize(p.PageSize)
	page := emptyPage[T](p)
	start := time.Now()

	var total int64
	if err := b.Filter(db.WithContext(ctx).Model(new(T))).Count(&total).Error; err != nil {
		metrics.ObserveList(b.resource, "failed", time.Since(start))
		return page, fmt.Errorf("count %s: %w", b.resource, err)
	}
	page.TotalCount = total
	page.TotalPages = totalPages(total, p.PageSize)

	// compare page numbers, not offsets: (Page-1)*PageSize can overflow
	if int64(p.Page-1) < int64(page.TotalPages) {
		q := b.Ordered(b.Filter(db.WithContext(ctx).Model(new(T))))
		for _, opt := range opts {
			q = opt(q)
		}
		if err := q.Limit(p.PageSize).Offset(p.Offset()).Find(&page.Data).Error; err != nil {
			metrics.ObserveList(b.resource, "failed", time.Since(start))
			return emptyPage[T](p), fmt.Errorf("list %s: %w", b.resource, err)
		}
	}

	outcome := "ok"
	if len(page.Data) == 0 {
		outcome = "empty"
	}
	metrics.ObserveList(b.resource, outcome, time.Since(start))
	return page, nil
}

// FetchOrEmpty is Fetch for pages that must always render: a query error is
// logged and turned into an empty page whose Error field says the load failed.
func FetchOrEmpty[T any](ctx context.Context, db *gorm.DB, b *Builder, p Params, opts ...Option) Page[T] {
	page, err := Fetch[T](ctx, db, b, p, opts...)
	if err != nil {
		log.Printf("❌ %s list query failed (page=%d size=%d): %v", b.resource, p.Page, p.PageSize, err)
		page = emptyPage[T](p.Normalize(p.PageSize))
		page.Error = "failed to load " + b.resource
	}
	return page
}

// FetchAll returns every matching row in list order, capped at MaxExportRows.
func FetchAll[T any](ctx context.Context, db *gorm.DB, b *Builder, opts ...Option) ([]T, error) {
	rows := make([]T, 0)
	q := b.Ordered(b.Filter(db.WithContext(ctx).Model(new(T))))
	for _, opt := range opts {
		q = opt(q)
	}
	if err := q.Limit(MaxExportRows).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list all %s: %w", b.resource, err)
	}
	return rows, nil
}

func totalPages(total int64, size int) int {
	if size <= 0 || total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
