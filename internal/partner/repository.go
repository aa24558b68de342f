package partner

import (
	"context"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

type Repository interface {
	Create(ctx context.Context, p *Partner) error
	GetByID(ctx context.Context, id uint) (*Partner, error)
	List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Partner]
	All(ctx context.Context, b *listquery.Builder) ([]Partner, error)
	Update(ctx context.Context, p *Partner) error
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Partner) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Partner, error) {
	var p Partner
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Partner] {
	return listquery.FetchOrEmpty[Partner](ctx, r.db, b, p)
}

func (r *repository) All(ctx context.Context, b *listquery.Builder) ([]Partner, error) {
	return listquery.FetchAll[Partner](ctx, r.db, b)
}

func (r *repository) Update(ctx context.Context, p *Partner) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&Partner{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
