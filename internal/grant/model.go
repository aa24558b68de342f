package grant

import (
	"net/mail"
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

const dateLayout = "2006-01-02"

// Grant is a funded research project, keyed by its university project id.
type Grant struct {
	ID                      uint       `gorm:"primaryKey;column:id" json:"id"`
	ProjectID               string     `gorm:"column:project_id;type:varchar(100);not null;uniqueIndex" json:"project_id"`
	Title                   string     `gorm:"column:title;type:text" json:"title"`
	StartDate               *time.Time `gorm:"column:start_date;index" json:"start_date,omitempty"`
	EndDate                 *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	CostCenter              string     `gorm:"column:cost_center;type:varchar(100)" json:"cost_center"`
	ProjectLeaderName       string     `gorm:"column:project_leader_name;type:varchar(255)" json:"project_leader_name"`
	ProjectLeaderEmail      string     `gorm:"column:project_leader_email;type:varchar(255)" json:"project_leader_email"`
	ProjectLeaderDepartment string     `gorm:"column:project_leader_department;type:varchar(255)" json:"project_leader_department"`
	ResearchAlliance        string     `gorm:"column:research_alliance;type:varchar(255)" json:"research_alliance"`
	ResearchGroup           string     `gorm:"column:research_group;type:varchar(255)" json:"research_group"`
	Type                    string     `gorm:"column:type;type:varchar(100);not null;index" json:"type"`
	Status                  string     `gorm:"column:status;type:varchar(50);index" json:"status"`
	SponsorName             string     `gorm:"column:sponsor_name;type:varchar(255)" json:"sponsor_name"`
	SponsorCategory         string     `gorm:"column:sponsor_category;type:varchar(100);not null;index" json:"sponsor_category"`
	SubSponsor              string     `gorm:"column:sub_sponsor;type:varchar(255)" json:"sub_sponsor"`
	ApprovedAmount          float64    `gorm:"column:approved_amount;not null" json:"approved_amount"`
	CreatedAt               time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Grant) TableName() string {
	return "grants"
}

// GrantInput is the admin form and import row shape.
type GrantInput struct {
	ProjectID               string  `json:"project_id" binding:"required,max=100"`
	Title                   string  `json:"title"`
	StartDate               string  `json:"start_date"`
	EndDate                 string  `json:"end_date"`
	CostCenter              string  `json:"cost_center"`
	ProjectLeaderName       string  `json:"project_leader_name"`
	ProjectLeaderEmail      string  `json:"project_leader_email" binding:"omitempty,email"`
	ProjectLeaderDepartment string  `json:"project_leader_department"`
	ResearchAlliance        string  `json:"research_alliance"`
	ResearchGroup           string  `json:"research_group"`
	Type                    string  `json:"type" binding:"required"`
	Status                  string  `json:"status"`
	SponsorName             string  `json:"sponsor_name"`
	SponsorCategory         string  `json:"sponsor_category" binding:"required"`
	SubSponsor              string  `json:"sub_sponsor"`
	ApprovedAmount          float64 `json:"approved_amount" binding:"gte=1"`
}

// Apply validates in and copies it onto g. Errors are keyed by json field.
func (in GrantInput) Apply(g *Grant) error {
	errs := validation.FieldErrors{}
	required := map[string]string{
		"project_id":       in.ProjectID,
		"type":             in.Type,
		"sponsor_category": in.SponsorCategory,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			errs.Add(field, "is required")
		}
	}
	if in.ApprovedAmount < 1 {
		errs.Add("approved_amount", "must be at least 1")
	}
	if in.ProjectLeaderEmail != "" {
		if _, err := mail.ParseAddress(in.ProjectLeaderEmail); err != nil {
			errs.Add("project_leader_email", "must be a valid email address")
		}
	}
	start := parseDate(errs, "start_date", in.StartDate)
	end := parseDate(errs, "end_date", in.EndDate)
	if start != nil && end != nil && end.Before(*start) {
		errs.Add("end_date", "must not be before start_date")
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	g.ProjectID = strings.TrimSpace(in.ProjectID)
	g.Title = in.Title
	g.StartDate = start
	g.EndDate = end
	g.CostCenter = in.CostCenter
	g.ProjectLeaderName = in.ProjectLeaderName
	g.ProjectLeaderEmail = in.ProjectLeaderEmail
	g.ProjectLeaderDepartment = in.ProjectLeaderDepartment
	g.ResearchAlliance = in.ResearchAlliance
	g.ResearchGroup = in.ResearchGroup
	g.Type = strings.TrimSpace(in.Type)
	g.Status = in.Status
	g.SponsorName = in.SponsorName
	g.SponsorCategory = strings.TrimSpace(in.SponsorCategory)
	g.SubSponsor = in.SubSponsor
	g.ApprovedAmount = in.ApprovedAmount
	return nil
}

func parseDate(errs validation.FieldErrors, field, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		errs.Add(field, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &t
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
