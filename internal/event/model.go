package event

import (
	"strings"
	"time"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	Categories = []string{"Conference", "Workshop", "Seminar", "Grant", "Competition", "Networking"}
	Priorities = []string{"High", "Medium", "Low"}
	Statuses   = []string{"Upcoming", "Registration Open", "Registration Closed", "Completed"}
)

// ============================
// 🔷 GORM Event Model
type Event struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	Title                string     `gorm:"type:varchar(255);not null" json:"title"`
	Description          string     `gorm:"type:text" json:"description"`
	Date                 time.Time  `gorm:"not null;index" json:"date"`
	Time                 string     `gorm:"type:varchar(5)" json:"time"`
	Location             string     `gorm:"type:text" json:"location"`
	Category             string     `gorm:"type:varchar(50);not null;index" json:"category"`
	Organizer            string     `gorm:"type:varchar(255)" json:"organizer"`
	RegistrationRequired bool       `gorm:"default:false" json:"registration_required"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	ContactEmail         string     `gorm:"type:varchar(255)" json:"contact_email"`
	ImageURL             string     `gorm:"type:text" json:"image_url"`
	ImagePath            string     `gorm:"type:text" json:"image_path,omitempty"`
	Priority             string     `gorm:"type:varchar(10);default:Medium" json:"priority"`
	Status               string     `gorm:"type:varchar(30);default:Upcoming;index" json:"status"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ============================
// 🟡 Create / Update Event Request
type EventInput struct {
	Title                string `json:"title" binding:"required,max=255"`
	Description          string `json:"description"`
	Date                 string `json:"date" binding:"required"` // 🛠 "2006-01-02"
	Time                 string `json:"time"`                    // 🛠 "15:04"
	Location             string `json:"location"`
	Category             string `json:"category" binding:"required"`
	Organizer            string `json:"organizer"`
	RegistrationRequired bool   `json:"registration_required"`
	RegistrationDeadline string `json:"registration_deadline"`
	ContactEmail         string `json:"contact_email" binding:"omitempty,email"`
	ImageURL             string `json:"image_url" binding:"omitempty,url"`
	Priority             string `json:"priority"`
	Status               string `json:"status"`
}

// Apply validates the enums and dates and copies the input onto e. Image
// fields are only overwritten when an URL is supplied.
func (in EventInput) Apply(e *Event) error {
	errs := validation.FieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		errs.Add("title", "is required")
	}
	if in.Category == "" {
		errs.Add("category", "is required")
	}
	errs.OneOf("category", in.Category, Categories)
	errs.OneOf("priority", in.Priority, Priorities)
	errs.OneOf("status", in.Status, Statuses)

	date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		errs.Add("date", "must be a date in YYYY-MM-DD format")
	}
	if in.Time != "" {
		if _, err := time.Parse(timeLayout, in.Time); err != nil {
			errs.Add("time", "must be a time in HH:MM 24-hour format")
		}
	}
	var deadline *time.Time
	if in.RegistrationDeadline != "" {
		d, err := time.Parse(dateLayout, in.RegistrationDeadline)
		if err != nil {
			errs.Add("registration_deadline", "must be a date in YYYY-MM-DD format")
		} else {
			deadline = &d
		}
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.Date = date
	e.Time = in.Time
	e.Location = in.Location
	e.Category = in.Category
	e.Organizer = in.Organizer
	e.RegistrationRequired = in.RegistrationRequired
	e.RegistrationDeadline = deadline
	e.ContactEmail = in.ContactEmail
	if in.ImageURL != "" {
		e.ImageURL = in.ImageURL
	}
	e.Priority = in.Priority
	if e.Priority == "" {
		e.Priority = "Medium"
	}
	e.Status = in.Status
	if e.Status == "" {
		e.Status = "Upcoming"
	}
	return nil
}

// Stats is the small dashboard block of the events admin page.
type Stats struct {
	Total     int64 `json:"total_events"`
	ThisMonth int64 `json:"this_month_events"`
	Upcoming  int64 `json:"upcoming_events"`
}
