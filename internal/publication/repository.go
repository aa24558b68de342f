package publication

import (
	"context"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

func (r *Repository) Create(ctx context.Context, p *Publication) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*Publication, error) {
	var p Publication
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Publication] {
	return listquery.FetchOrEmpty[Publication](ctx, r.DB, b, p)
}

func (r *Repository) All(ctx context.Context, b *listquery.Builder) ([]Publication, error) {
	return listquery.FetchAll[Publication](ctx, r.DB, b)
}

func (r *Repository) Update(ctx context.Context, p *Publication) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&Publication{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
