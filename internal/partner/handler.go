package partner

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

// ListPartners handles GET /partners
// @Summary List partners in display order
// @Tags Partners
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Rows per page (default 12)"
// @Param query query string false "Search name and description"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/partners [get]
func (h *Handler) ListPartners(c *gin.Context) {
	page, err := h.service.ListPublic(c.Request.Context(), httpx.ListParams(c, PublicSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListAdminPartners handles GET /admin/partners
// @Summary List partners (admin)
// @Tags Admin Partners
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/partners [get]
func (h *Handler) ListAdminPartners(c *gin.Context) {
	page, err := h.service.ListAdmin(c.Request.Context(), httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreatePartner handles POST /admin/partners
// @Summary Create a partner
// @Tags Admin Partners
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param partner body PartnerInput true "Partner"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/partners [post]
func (h *Handler) CreatePartner(c *gin.Context) {
	var in PartnerInput
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

// UpdatePartner handles PUT /admin/partners/:id
// @Summary Update a partner
// @Tags Admin Partners
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Partner ID"
// @Param partner body PartnerInput true "Partner"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/partners/{id} [put]
func (h *Handler) UpdatePartner(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	var in PartnerInput
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

// DeletePartner handles DELETE /admin/partners/:id
// @Summary Delete a partner and its logo
// @Tags Admin Partners
// @Security BearerAuth
// @Produce json
// @Param id path int true "Partner ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/partners/{id} [delete]
func (h *Handler) DeletePartner(c *gin.Context) {
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

// UploadLogo handles POST /admin/partners/:id/logo
// @Summary Upload a partner logo
// @Tags Admin Partners
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Partner ID"
// @Param logo formData file true "jpg, png, gif or webp up to 5MB"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/partners/{id}/logo [post]
func (h *Handler) UploadLogo(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("logo")
	if err != nil {
		apperr.Respond(c, validation.FieldErrors{"logo": "is required"})
		return
	}
	res, err := h.service.UploadLogo(c.Request.Context(), httpx.MutationRequest(c), id, fh, httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
