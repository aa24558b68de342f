package publication

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/httpx"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// ListPublications godoc
// @Summary List publications
// @Description Newest first. Filters: query, level, type, category, status, research_group, year, month, date_from, date_to.
// @Tags Publications
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Rows per page (default 10)"
// @Param query query string false "Search ref no, title, journal, authors"
// @Param level query string false "Level"
// @Param category query string false "Category"
// @Param year query int false "Publication year"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/publications [get]
func (h *Handler) ListPublications(c *gin.Context) {
	page, err := h.Service.ListPublic(c.Request.Context(), httpx.ListParams(c, PublicSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListAdminPublications godoc
// @Summary List publications for the admin table
// @Tags Admin Publications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/publications [get]
func (h *Handler) ListAdminPublications(c *gin.Context) {
	page, err := h.Service.ListAdmin(c.Request.Context(), httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetPublication godoc
// @Summary Get a publication
// @Tags Publications
// @Produce json
// @Param id path int true "Publication ID"
// @Success 200 {object} Publication
// @Failure 404 {object} map[string]string
// @Router /api/v1/publications/{id} [get]
func (h *Handler) GetPublication(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	pub, err := h.Service.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pub)
}

// CreatePublication godoc
// @Summary Create a publication
// @Tags Admin Publications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param publication body PublicationInput true "Publication"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/admin/publications [post]
func (h *Handler) CreatePublication(c *gin.Context) {
	var in PublicationInput
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

// UpdatePublication godoc
// @Summary Update a publication
// @Tags Admin Publications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Publication ID"
// @Param publication body PublicationInput true "Publication"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/publications/{id} [put]
func (h *Handler) UpdatePublication(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	var in PublicationInput
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

// DeletePublication godoc
// @Summary Delete a publication
// @Tags Admin Publications
// @Security BearerAuth
// @Produce json
// @Param id path int true "Publication ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/publications/{id} [delete]
func (h *Handler) DeletePublication(c *gin.Context) {
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
