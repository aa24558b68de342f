package grant

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/httpx"
	"github.com/uniresearch/research-portal-backend/internal/validation"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListGrants handles GET /grants
// @Summary List grants
// @Tags Grants
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Rows per page (default 10, max 100)"
// @Param query query string false "Search project id, title, leader, sponsor, research group"
// @Param type query string false "Grant type"
// @Param status query string false "Grant status"
// @Param sponsor_category query string false "Sponsor category"
// @Param year query int false "Start year"
// @Param month query int false "Start month 1-12 (requires year)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/grants [get]
func (h *Handler) ListGrants(c *gin.Context) {
	page, err := h.service.ListPublic(c.Request.Context(), httpx.ListParams(c, PublicSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListAdminGrants handles GET /admin/grants
// @Summary List grants (admin, newest first)
// @Tags Admin Grants
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/grants [get]
func (h *Handler) ListAdminGrants(c *gin.Context) {
	page, err := h.service.ListAdmin(c.Request.Context(), httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetGrant handles GET /grants/:id
// @Summary Get a grant
// @Tags Grants
// @Produce json
// @Param id path int true "Grant ID"
// @Success 200 {object} Grant
// @Failure 404 {object} map[string]string
// @Router /api/v1/grants/{id} [get]
func (h *Handler) GetGrant(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	g, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// CreateGrant handles POST /admin/grants
// @Summary Create a grant
// @Tags Admin Grants
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param grant body GrantInput true "Grant"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/admin/grants [post]
func (h *Handler) CreateGrant(c *gin.Context) {
	var in GrantInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	res, err := h.service.Create(c.Request.Context(), httpx.MutationRequest(c), in, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UpdateGrant handles PUT /admin/grants/:id
// @Summary Update a grant
// @Tags Admin Grants
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Grant ID"
// @Param grant body GrantInput true "Grant"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/admin/grants/{id} [put]
func (h *Handler) UpdateGrant(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	var in GrantInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	res, err := h.service.Update(c.Request.Context(), httpx.MutationRequest(c), id, in, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteGrant handles DELETE /admin/grants/:id
// @Summary Delete a grant
// @Tags Admin Grants
// @Security BearerAuth
// @Produce json
// @Param id path int true "Grant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/grants/{id} [delete]
func (h *Handler) DeleteGrant(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.Delete(c.Request.Context(), httpx.MutationRequest(c), id, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ImportGrants handles POST /admin/grants/import
// @Summary Import grants from a spreadsheet
// @Description Upserts rows on project_id. Rows that fail validation are listed with their sheet row number.
// @Tags Admin Grants
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true ".xlsx or .csv, up to 10MB"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/grants/import [post]
func (h *Handler) ImportGrants(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		apperr.Respond(c, validation.FieldErrors{"file": "is required"})
		return
	}
	res, err := h.service.Import(c.Request.Context(), httpx.MutationRequest(c), fh, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListImportFiles handles GET /admin/grants/imports
// @Summary List stored grant import sheets
// @Tags Admin Grants
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/grants/imports [get]
func (h *Handler) ListImportFiles(c *gin.Context) {
	files, err := h.service.ImportFiles(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": files, "totalCount": len(files)})
}
