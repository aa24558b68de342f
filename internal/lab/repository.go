package lab

import (
	"context"

	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// ===========================
// 🧪 Labs
func (r *Repository) Create(ctx context.Context, l *Lab) error {
	return r.DB.WithContext(ctx).Omit("Equipment").Create(l).Error
}

// GetByID loads the lab with its equipment and each item's catalogue entry.
func (r *Repository) GetByID(ctx context.Context, id uint) (*Lab, error) {
	var l Lab
	err := r.DB.WithContext(ctx).
		Preload("Equipment", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Equipment.Equipment").
		First(&l, id).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) Exists(ctx context.Context, id uint) error {
	var l Lab
	return r.DB.WithContext(ctx).Select("id").First(&l, id).Error
}

func (r *Repository) List(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[Lab] {
	return listquery.FetchOrEmpty[Lab](ctx, r.DB, b, p)
}

func (r *Repository) All(ctx context.Context, b *listquery.Builder) ([]Lab, error) {
	return listquery.FetchAll[Lab](ctx, r.DB, b, listquery.Preload("Equipment.Equipment"))
}

func (r *Repository) Update(ctx context.Context, l *Lab) error {
	return r.DB.WithContext(ctx).Omit("Equipment").Save(l).Error
}

// Delete removes the lab and its equipment rows in one transaction.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lab_id = ?", id).Delete(&equipment.LabEquipment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Lab{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ===========================
// 🔗 Lab equipment
func (r *Repository) GetEquipment(ctx context.Context, id uint) (*equipment.Equipment, error) {
	var e equipment.Equipment
	if err := r.DB.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) GetLabEquipment(ctx context.Context, labID, equipmentID uint) (*equipment.LabEquipment, error) {
	var le equipment.LabEquipment
	err := r.DB.WithContext(ctx).Preload("Equipment").
		Where("lab_id = ? AND equipment_id = ?", labID, equipmentID).
		First(&le).Error
	if err != nil {
		return nil, err
	}
	return &le, nil
}

func (r *Repository) CreateLabEquipment(ctx context.Context, le *equipment.LabEquipment) error {
	return r.DB.WithContext(ctx).Omit("Equipment").Create(le).Error
}

func (r *Repository) UpdateQuantity(ctx context.Context, le *equipment.LabEquipment, quantity int) error {
	return r.DB.WithContext(ctx).Model(le).Update("quantity", quantity).Error
}

func (r *Repository) DeleteLabEquipment(ctx context.Context, labID, equipmentID uint) error {
	res := r.DB.WithContext(ctx).
		Where("lab_id = ? AND equipment_id = ?", labID, equipmentID).
		Delete(&equipment.LabEquipment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) ListLabEquipment(ctx context.Context, b *listquery.Builder, p listquery.Params) listquery.Page[equipment.LabEquipment] {
	return listquery.FetchOrEmpty[equipment.LabEquipment](ctx, r.DB, b, p, listquery.Preload("Equipment"))
}
