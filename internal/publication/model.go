package publication

import (
	"net/mail"
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

const dateLayout = "2006-01-02"

var (
	Levels     = []string{"International", "National", "Institutional"}
	Types      = []string{"Journal Article", "Conference Paper", "Book", "Book Chapter", "Patent", "Other"}
	Categories = []string{"Q1", "Q2", "Q3", "Q4", "Scopus", "Web of Science", "Non-indexed"}
)

// Publication is one research output, keyed by its library reference number.
type Publication struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	RefNo         string     `gorm:"type:varchar(100);not null;uniqueIndex" json:"ref_no"`
	Title         string     `gorm:"type:text;not null" json:"title"`
	Journal       string     `gorm:"type:varchar(255)" json:"journal"`
	ImpactFactor  float64    `json:"impact_factor"`
	Date          *time.Time `gorm:"index" json:"date,omitempty"`
	Level         string     `gorm:"type:varchar(50);index" json:"level"`
	Type          string     `gorm:"type:varchar(50);index" json:"type"`
	Category      string     `gorm:"type:varchar(50);index" json:"category"`
	Status        string     `gorm:"type:varchar(50)" json:"status"`
	AuthorName    string     `gorm:"type:varchar(255)" json:"author_name"`
	AuthorEmail   string     `gorm:"type:varchar(255)" json:"author_email"`
	CoAuthors     string     `gorm:"type:text" json:"co_authors"`
	ResearchGroup string     `gorm:"type:varchar(255);index" json:"research_group"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type PublicationInput struct {
	RefNo         string  `json:"ref_no" binding:"required,max=100"`
	Title         string  `json:"title" binding:"required"`
	Journal       string  `json:"journal"`
	ImpactFactor  float64 `json:"impact_factor" binding:"gte=0"`
	Date          string  `json:"date"`
	Level         string  `json:"level"`
	Type          string  `json:"type"`
	Category      string  `json:"category"`
	Status        string  `json:"status"`
	AuthorName    string  `json:"author_name"`
	AuthorEmail   string  `json:"author_email" binding:"omitempty,email"`
	CoAuthors     string  `json:"co_authors"`
	ResearchGroup string  `json:"research_group"`
}

func (in PublicationInput) Apply(p *Publication) error {
	errs := validation.FieldErrors{}
	if strings.TrimSpace(in.RefNo) == "" {
		errs.Add("ref_no", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		errs.Add("title", "is required")
	}
	if in.ImpactFactor < 0 {
		errs.Add("impact_factor", "must be at least 0")
	}
	errs.OneOf("level", in.Level, Levels)
	errs.OneOf("type", in.Type, Types)
	errs.OneOf("category", in.Category, Categories)
	if in.AuthorEmail != "" {
		if _, err := mail.ParseAddress(in.AuthorEmail); err != nil {
			errs.Add("author_email", "must be a valid email address")
		}
	}
	var date *time.Time
	if raw := strings.TrimSpace(in.Date); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			errs.Add("date", "must be a date in YYYY-MM-DD format")
		} else {
			date = &d
		}
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	p.RefNo = strings.TrimSpace(in.RefNo)
	p.Title = strings.TrimSpace(in.Title)
	p.Journal = in.Journal
	p.ImpactFactor = in.ImpactFactor
	p.Date = date
	p.Level = in.Level
	p.Type = in.Type
	p.Category = in.Category
	p.Status = in.Status
	p.AuthorName = in.AuthorName
	p.AuthorEmail = in.AuthorEmail
	p.CoAuthors = in.CoAuthors
	p.ResearchGroup = in.ResearchGroup
	return nil
}
