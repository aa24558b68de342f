package charts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) year(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return h.Service.Now().Year(), true
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1900 || y > 9999 {
		apperr.Respond(c, validation.FieldErrors{"year": "must be a four digit year"})
		return 0, false
	}
	return y, true
}

func (h *Handler) window(c *gin.Context) (Window, bool) {
	w, err := DateRange(c.Query("range"), c.Query("start_date"), c.Query("end_date"), h.Service.Now())
	if err != nil {
		apperr.Respond(c, err)
		return Window{}, false
	}
	return w, true
}

func respond[T any](c *gin.Context, data T, err error) {
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// GrantsMonthly godoc
// @Summary Monthly and cumulative approved grant amounts
// @Tags Charts
// @Produce json
// @Param year query int false "Year (default current)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/grants/monthly [get]
func (h *Handler) GrantsMonthly(c *gin.Context) {
	year, ok := h.year(c)
	if !ok {
		return
	}
	data, err := h.Service.GrantsMonthly(c.Request.Context(), year)
	respond(c, data, err)
}

// GrantsBySponsor godoc
// @Summary Grant totals by sponsor category
// @Tags Charts
// @Produce json
// @Param range query string false "all, daily, weekly, monthly, yearly or custom"
// @Param start_date query string false "Custom range start (YYYY-MM-DD)"
// @Param end_date query string false "Custom range end (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/grants/sponsors [get]
func (h *Handler) GrantsBySponsor(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	data, err := h.Service.GrantsBySponsor(c.Request.Context(), w)
	respond(c, data, err)
}

// GrantsByType godoc
// @Summary Grant counts and totals by type
// @Tags Charts
// @Produce json
// @Param range query string false "Date range preset"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/grants/types [get]
func (h *Handler) GrantsByType(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	data, err := h.Service.GrantsByType(c.Request.Context(), w)
	respond(c, data, err)
}

// GrantsByStatus godoc
// @Summary Grant counts by status
// @Tags Charts
// @Produce json
// @Param range query string false "Date range preset"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/grants/statuses [get]
func (h *Handler) GrantsByStatus(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	data, err := h.Service.GrantsByStatus(c.Request.Context(), w)
	respond(c, data, err)
}

// PublicationsByCategory godoc
// @Summary Publication counts by category
// @Tags Charts
// @Produce json
// @Param range query string false "Date range preset"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/publications/categories [get]
func (h *Handler) PublicationsByCategory(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	data, err := h.Service.PublicationsByCategory(c.Request.Context(), w)
	respond(c, data, err)
}

// PublicationsByLevel godoc
// @Summary Publication counts by level
// @Tags Charts
// @Produce json
// @Param range query string false "Date range preset"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/publications/levels [get]
func (h *Handler) PublicationsByLevel(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	data, err := h.Service.PublicationsByLevel(c.Request.Context(), w)
	respond(c, data, err)
}

// PublicationsByYear godoc
// @Summary Publication counts per year
// @Tags Charts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/publications/years [get]
func (h *Handler) PublicationsByYear(c *gin.Context) {
	data, err := h.Service.PublicationsByYear(c.Request.Context())
	respond(c, data, err)
}

// EventsByCategory godoc
// @Summary Event counts by category
// @Tags Charts
// @Produce json
// @Param range query string false "Date range preset"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/events/categories [get]
func (h *Handler) EventsByCategory(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}
	data, err := h.Service.EventsByCategory(c.Request.Context(), w)
	respond(c, data, err)
}

// EventsMonthly godoc
// @Summary Events per month
// @Tags Charts
// @Produce json
// @Param year query int false "Year (default current)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/charts/events/monthly [get]
func (h *Handler) EventsMonthly(c *gin.Context) {
	year, ok := h.year(c)
	if !ok {
		return
	}
	data, err := h.Service.EventsMonthly(c.Request.Context(), year)
	respond(c, data, err)
}

// Summary godoc
// @Summary Dashboard totals
// @Tags Charts
// @Produce json
// @Success 200 {object} Summary
// @Router /api/v1/charts/summary [get]
func (h *Handler) Summary(c *gin.Context) {
	sum, err := h.Service.Summary(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Register mounts the chart routes on rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/charts")
	g.GET("/grants/monthly", h.GrantsMonthly)
	g.GET("/grants/sponsors", h.GrantsBySponsor)
	g.GET("/grants/types", h.GrantsByType)
	g.GET("/grants/statuses", h.GrantsByStatus)
	g.GET("/publications/categories", h.PublicationsByCategory)
	g.GET("/publications/levels", h.PublicationsByLevel)
	g.GET("/publications/years", h.PublicationsByYear)
	g.GET("/events/categories", h.EventsByCategory)
	g.GET("/events/monthly", h.EventsMonthly)
	g.GET("/summary", h.Summary)
}
