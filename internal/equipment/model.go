package equipment

import (
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

// ============================
// 🔷 Equipment catalogue entry
type Equipment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LabEquipment says how many units of one piece of equipment a lab holds.
// A lab lists each piece of equipment at most once.
type LabEquipment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	LabID       uint       `gorm:"not null;uniqueIndex:idx_lab_equipment" json:"lab_id"`
	EquipmentID uint       `gorm:"not null;uniqueIndex:idx_lab_equipment;index" json:"equipment_id"`
	Quantity    int        `gorm:"not null;default:1" json:"quantity"`
	Equipment   *Equipment `gorm:"foreignKey:EquipmentID;constraint:OnDelete:CASCADE" json:"equipment,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (LabEquipment) TableName() string {
	return "lab_equipment"
}

type EquipmentInput struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

func (in EquipmentInput) Apply(e *Equipment) error {
	if strings.TrimSpace(in.Name) == "" {
		return validation.FieldErrors{"name": "is required"}
	}
	e.Name = strings.TrimSpace(in.Name)
	e.Description = in.Description
	return nil
}
