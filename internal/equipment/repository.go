package equipment

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

func (r *Repository) Create(ctx context.Context, e *Equipment) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *Repository) GetByID(ctx context.Context, id uint) (*Equipment, error) {
	var e Equipment
	if err := r.DB.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Equipment] {
	return listquery.FetchOrEmpty[Equipment](ctx, r.DB, b, p)
}

func (r *Repository) All(ctx context.Context, b *listquery.Builder) ([]Equipment, error) {
	return listquery.FetchAll[Equipment](ctx, r.DB, b)
}

func (r *Repository) Update(ctx context.Context, e *Equipment) error {
	return r.DB.WithContext(ctx).Save(e).Error
}

// Delete removes the equipment and every lab's holding of it together.
// It returns how many lab associations went with it.
func (r *Repository) Delete(ctx context.Context, id uint) (int64, error) {
	var removed int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("equipment_id = ?", id).Delete(&LabEquipment{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		res = tx.Delete(&Equipment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return removed, err
}
