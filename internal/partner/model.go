package partner

import (
	"net/url"
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

// Partner is an organisation shown on the partners page, in DisplayOrder.
type Partner struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	Website      string    `gorm:"type:text" json:"website"`
	LogoURL      string    `gorm:"type:text" json:"logo_url"`
	LogoPath     string    `gorm:"type:text" json:"logo_path,omitempty"`
	DisplayOrder int       `gorm:"not null;default:0;index" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PartnerInput struct {
	Name         string `json:"name" binding:"required,max=255"`
	Description  string `json:"description"`
	Website      string `json:"website" binding:"omitempty,url"`
	DisplayOrder int    `json:"display_order" binding:"gte=0"`
}

func (in PartnerInput) Apply(p *Partner) error {
	errs := validation.FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		errs.Add("name", "is required")
	}
	if in.Website != "" {
		if u, err := url.ParseRequestURI(in.Website); err != nil || u.Host == "" {
			errs.Add("website", "must be a valid URL")
		}
	}
	if in.DisplayOrder < 0 {
		errs.Add("display_order", "must be at least 0")
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Website = in.Website
	p.DisplayOrder = in.DisplayOrder
	return nil
}
