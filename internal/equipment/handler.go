package equipment

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

// ListEquipment godoc
// @Summary List equipment
// @Tags Equipment
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Rows per page (default 20)"
// @Param query query string false "Search name and description"
// @Param lab_id query int false "Only equipment held by this lab"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/equipment [get]
func (h *Handler) ListEquipment(c *gin.Context) {
	page, err := h.Service.ListPublic(c.Request.Context(), httpx.ListParams(c, PublicSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListAdminEquipment godoc
// @Summary List equipment for the admin table
// @Tags Admin Equipment
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/equipment [get]
func (h *Handler) ListAdminEquipment(c *gin.Context) {
	page, err := h.Service.ListAdmin(c.Request.Context(), httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateEquipment godoc
// @Summary Add equipment to the catalogue
// @Tags Admin Equipment
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param equipment body EquipmentInput true "Equipment"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/admin/equipment [post]
func (h *Handler) CreateEquipment(c *gin.Context) {
	var in EquipmentInput
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

// UpdateEquipment godoc
// @Summary Rename or describe equipment
// @Tags Admin Equipment
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Param equipment body EquipmentInput true "Equipment"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/equipment/{id} [put]
func (h *Handler) UpdateEquipment(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	var in EquipmentInput
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

// DeleteEquipment godoc
// @Summary Delete equipment and its lab assignments
// @Tags Admin Equipment
// @Security BearerAuth
// @Produce json
// @Param id path int true "Equipment ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/equipment/{id} [delete]
func (h *Handler) DeleteEquipment(c *gin.Context) {
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
