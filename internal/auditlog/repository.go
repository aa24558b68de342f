package auditlog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

// ListSpec maps audit log query parameters onto the shared list builder.
// Columns are qualified because the row query joins users.
var ListSpec = listquery.Spec{
	Resource:      "audit_logs",
	SearchColumns: []string{"audit_logs.action", "audit_logs.resource"},
	Enums: map[string]string{
		"action":   "audit_logs.action",
		"resource": "audit_logs.resource",
		"status":   "audit_logs.status",
	},
	IDs:             map[string]string{"user_id": "audit_logs.user_id"},
	DateColumn:      "audit_logs.created_at",
	Order:           []listquery.Order{{Column: "audit_logs.created_at", Desc: true}},
	DefaultPageSize: 20,
}

type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[AuditLog]
	All(ctx context.Context, b *listquery.Builder) ([]AuditLog, error)
	GetByID(ctx context.Context, id uint) (*AuditLog, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func withUserName(db *gorm.DB) *gorm.DB {
	return db.Select("audit_logs.*, users.full_name AS user_name").
		Joins("LEFT JOIN users ON users.id = audit_logs.user_id")
}

// Create inserts a new audit log entry
func (r *repository) Create(ctx context.Context, log *AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[AuditLog] {
	return listquery.FetchOrEmpty[AuditLog](ctx, r.db, b.Tiebreak("audit_logs.id"), p, withUserName)
}

func (r *repository) All(ctx context.Context, b *listquery.Builder) ([]AuditLog, error) {
	return listquery.FetchAll[AuditLog](ctx, r.db, b.Tiebreak("audit_logs.id"), withUserName)
}

// GetByID retrieves a specific audit log by ID
func (r *repository) GetByID(ctx context.Context, id uint) (*AuditLog, error) {
	var log AuditLog
	err := withUserName(r.db.WithContext(ctx).Model(&AuditLog{})).
		Where("audit_logs.id = ?", id).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{Since: since, ActionBreakdown: map[string]int64{}}

	type row struct {
		Action string
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&AuditLog{}).
		Select("action, status, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("action, status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, rw := range rows {
		stats.Total += rw.Count
		stats.ActionBreakdown[rw.Action] += rw.Count
		if rw.Status == StatusSuccess {
			stats.SuccessCount += rw.Count
		} else {
			stats.FailureCount += rw.Count
		}
	}
	return stats, nil
}
