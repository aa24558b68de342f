package event

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// ===========================
// 🎯 Create Event
func (r *Repository) Create(ctx context.Context, e *Event) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

// ===========================
// 🔍 Get Event By ID
func (r *Repository) GetByID(ctx context.Context, id uint) (*Event, error) {
	var e Event
	if err := r.DB.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ===========================
// 📄 List Events (filtered, paginated)
func (r *Repository) List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Event] {
	return listquery.FetchOrEmpty[Event](ctx, r.DB, b, p)
}

// All returns every event matching b, for exports.
func (r *Repository) All(ctx context.Context, b *listquery.Builder) ([]Event, error) {
	return listquery.FetchAll[Event](ctx, r.DB, b)
}

// ===========================
// 🛠 Update Event
func (r *Repository) Update(ctx context.Context, e *Event) error {
	return r.DB.WithContext(ctx).Save(e).Error
}

// ===========================
// ❌ Delete Event
func (r *Repository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&Event{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ===========================
// 📊 Event Dashboard Stats
func (r *Repository) GetStats(ctx context.Context, now time.Time) (*Stats, error) {
	var stats Stats
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	db := r.DB.WithContext(ctx).Model(&Event{})
	if err := db.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(&Event{}).
		Where("date >= ? AND date < ?", startOfMonth, startOfMonth.AddDate(0, 1, 0)).
		Count(&stats.ThisMonth).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(&Event{}).
		Where("date >= ?", today).
		Count(&stats.Upcoming).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
