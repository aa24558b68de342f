package event

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/httpx"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// ===========================
// 📆 Public Events - GET /events
// @Summary List events
// @Description Public event calendar ordered by date, with search and filters
// @Tags Events
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Rows per page (default 9, max 100)"
// @Param query query string false "Search title, description, location, organizer"
// @Param category query string false "Conference, Workshop, Seminar, Grant, Competition, Networking or all"
// @Param priority query string false "High, Medium, Low"
// @Param status query string false "Event status"
// @Param year query int false "Calendar year"
// @Param month query int false "Month 1-12 (requires year)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	page, err := h.Service.ListPublic(c.Request.Context(), httpx.ListParams(c, PublicSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ===========================
// 🗂 Admin Events - GET /admin/events
// @Summary List events (admin)
// @Tags Admin Events
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/events [get]
func (h *Handler) ListAdminEvents(c *gin.Context) {
	page, err := h.Service.ListAdmin(c.Request.Context(), httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ===========================
// 🔍 Get Event - GET /events/:id
// @Summary Get an event
// @Tags Events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} Event
// @Failure 404 {object} map[string]string
// @Router /api/v1/events/{id} [get]
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	e, err := h.Service.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ===========================
// 📊 Event Stats - GET /admin/events/stats
// @Summary Event dashboard stats
// @Tags Admin Events
// @Security BearerAuth
// @Produce json
// @Success 200 {object} Stats
// @Router /api/v1/admin/events/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ===========================
// 🎯 Create Event - POST /admin/events
// @Summary Create an event
// @Description Creates the event and returns it with the caller's refreshed list (paging and filters from the query string)
// @Tags Admin Events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param event body EventInput true "Event"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Router /api/v1/admin/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	var in EventInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	res, err := h.Service.Create(c.Request.Context(), httpx.MutationRequest(c), in, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ===========================
// 🛠 Update Event - PUT /admin/events/:id
// @Summary Update an event
// @Tags Admin Events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param event body EventInput true "Event"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/events/{id} [put]
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	var in EventInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	res, err := h.Service.Update(c.Request.Context(), httpx.MutationRequest(c), id, in, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ===========================
// ❌ Delete Event - DELETE /admin/events/:id
// @Summary Delete an event
// @Tags Admin Events
// @Security BearerAuth
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/events/{id} [delete]
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	res, err := h.Service.Delete(c.Request.Context(), httpx.MutationRequest(c), id, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ===========================
// 🖼 Upload Image - POST /admin/events/:id/image
// @Summary Upload an event image
// @Tags Admin Events
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Event ID"
// @Param image formData file true "jpg, png, gif or webp up to 5MB"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/events/{id}/image [post]
func (h *Handler) UploadImage(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		apperr.Respond(c, validation.FieldErrors{"image": "is required"})
		return
	}
	res, err := h.Service.UploadImage(c.Request.Context(), httpx.MutationRequest(c), id, fh, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
