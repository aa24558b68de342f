// Package about serves the single editable "About" page.
package about

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/changefeed"
	"github.com/uniresearch/research-portal-backend/internal/httpx"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

// singletonID is the only row the table ever holds.
const singletonID = 1

var Kind = mutation.Kind{Resource: "about", Label: "ABOUT"}

type AboutContent struct {
	ID           uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Body         string    `gorm:"type:text" json:"body"`
	Mission      string    `gorm:"type:text" json:"mission"`
	Vision       string    `gorm:"type:text" json:"vision"`
	ContactEmail string    `gorm:"type:varchar(255)" json:"contact_email"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AboutContent) TableName() string {
	return "about_content"
}

type AboutInput struct {
	Title        string `json:"title" binding:"required,max=255"`
	Body         string `json:"body"`
	Mission      string `json:"mission"`
	Vision       string `json:"vision"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

func (in AboutInput) apply(a *AboutContent) error {
	errs := validation.FieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		errs.Add("title", "is required")
	}
	if in.ContactEmail != "" {
		if _, err := mail.ParseAddress(in.ContactEmail); err != nil {
			errs.Add("contact_email", "must be a valid email address")
		}
	}
	if err := errs.OrNil(); err != nil {
		return err
	}
	a.ID = singletonID
	a.Title = strings.TrimSpace(in.Title)
	a.Body = in.Body
	a.Mission = in.Mission
	a.Vision = in.Vision
	a.ContactEmail = in.ContactEmail
	return nil
}

type Service struct {
	DB       *gorm.DB
	Recorder *mutation.Recorder
}

func NewService(db *gorm.DB, rec *mutation.Recorder) *Service {
	return &Service{DB: db, Recorder: rec}
}

// Get returns the page content. Before the first edit it is an empty page
// rather than a 404 so the public site always renders.
func (s *Service) Get(ctx context.Context) (*AboutContent, error) {
	var a AboutContent
	err := s.DB.WithContext(ctx).First(&a, singletonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &AboutContent{ID: singletonID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load about content: %w", err)
	}
	return &a, nil
}

// Update writes the singleton row, creating it on the first edit.
func (s *Service) Update(ctx context.Context, req mutation.Request, in AboutInput) (*AboutContent, error) {
	details := map[string]interface{}{"title": in.Title}
	if err := s.Recorder.Authorize(ctx, req, Kind, changefeed.ActionUpdated, details); err != nil {
		return nil, err
	}

	a := &AboutContent{}
	err := in.apply(a)
	if err == nil {
		err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "body", "mission", "vision", "contact_email", "updated_at"}),
		}).Create(a).Error
	}
	s.Recorder.Record(ctx, req, Kind, changefeed.ActionUpdated, singletonID, details, err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// GetAbout godoc
// @Summary Get the About page
// @Tags About
// @Produce json
// @Success 200 {object} AboutContent
// @Router /api/v1/about [get]
func (h *Handler) GetAbout(c *gin.Context) {
	a, err := h.Service.Get(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// UpdateAbout godoc
// @Summary Edit the About page
// @Tags Admin About
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param about body AboutInput true "About content"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/about [put]
func (h *Handler) UpdateAbout(c *gin.Context) {
	var in AboutInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	a, err := h.Service.Update(c.Request.Context(), httpx.MutationRequest(c), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "about page updated successfully", "data": a})
}
