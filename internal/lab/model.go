package lab

import (
	"net/mail"
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/equipment"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

// ============================
// 🔷 GORM Lab Model
type Lab struct {
	ID           uint                     `gorm:"primaryKey" json:"id"`
	Name         string                   `gorm:"type:varchar(255);not null" json:"name"`
	HeadName     string                   `gorm:"type:varchar(255)" json:"head_name"`
	HeadEmail    string                   `gorm:"type:varchar(255)" json:"head_email"`
	ContactPhone string                   `gorm:"type:varchar(50)" json:"contact_phone"`
	Type         string                   `gorm:"type:varchar(100);index" json:"type"`
	ResearchArea string                   `gorm:"type:varchar(255);index" json:"research_area"`
	Location     string                   `gorm:"type:varchar(255)" json:"location"`
	Status       string                   `gorm:"type:varchar(50);index" json:"status"`
	Description  string                   `gorm:"type:text" json:"description"`
	Equipment    []equipment.LabEquipment `gorm:"foreignKey:LabID;constraint:OnDelete:CASCADE" json:"equipment,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

type LabInput struct {
	Name         string `json:"name" binding:"required,max=255"`
	HeadName     string `json:"head_name"`
	HeadEmail    string `json:"head_email" binding:"omitempty,email"`
	ContactPhone string `json:"contact_phone" binding:"max=50"`
	Type         string `json:"type"`
	ResearchArea string `json:"research_area"`
	Location     string `json:"location"`
	Status       string `json:"status"`
	Description  string `json:"description"`
}

func (in LabInput) Apply(l *Lab) error {
	errs := validation.FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		errs.Add("name", "is required")
	}
	if in.HeadEmail != "" {
		if _, err := mail.ParseAddress(in.HeadEmail); err != nil {
			errs.Add("head_email", "must be a valid email address")
		}
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	l.Name = strings.TrimSpace(in.Name)
	l.HeadName = in.HeadName
	l.HeadEmail = in.HeadEmail
	l.ContactPhone = in.ContactPhone
	l.Type = in.Type
	l.ResearchArea = in.ResearchArea
	l.Location = in.Location
	l.Status = in.Status
	l.Description = in.Description
	return nil
}

// AssignInput adds equipment to a lab. Quantity defaults to 1.
type AssignInput struct {
	EquipmentID uint `json:"equipment_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"omitempty,gte=1"`
}

type QuantityInput struct {
	Quantity int `json:"quantity" binding:"required,gte=1"`
}

func checkQuantity(q int) error {
	if q < 1 {
		return validation.FieldErrors{"quantity": "must be at least 1"}
	}
	return nil
}
