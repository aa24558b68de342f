package grant

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

type Repository interface {
	Create(ctx context.Context, g *Grant) error
	GetByID(ctx context.Context, id uint) (*Grant, error)
	Update(ctx context.Context, g *Grant) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Grant]
	All(ctx context.Context, b *listquery.Builder) ([]Grant, error)
	// Upsert inserts or updates rows by project_id and reports how many
	// project ids already existed.
	Upsert(ctx context.Context, rows []Grant) (updated int, err error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, g *Grant) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Grant, error) {
	var g Grant
	if err := r.db.WithContext(ctx).First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repository) Update(ctx context.Context, g *Grant) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&Grant{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Grant] {
	return listquery.FetchOrEmpty[Grant](ctx, r.db, b, p)
}

func (r *repository) All(ctx context.Context, b *listquery.Builder) ([]Grant, error) {
	return listquery.FetchAll[Grant](ctx, r.db, b)
}

var upsertColumns = []string{
	"title", "start_date", "end_date", "cost_center",
	"project_leader_name", "project_leader_email", "project_leader_department",
	"research_alliance", "research_group", "type", "status",
	"sponsor_name", "sponsor_category", "sub_sponsor", "approved_amount", "updated_at",
}

func (r *repository) Upsert(ctx context.Context, rows []Grant) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]string, len(rows))
	for i, g := range rows {
		ids[i] = g.ProjectID
	}

	var existing int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Grant{}).Where("project_id IN ?", ids).Count(&existing).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).CreateInBatches(&rows, 200).Error
	})
	return int(existing), err
}
