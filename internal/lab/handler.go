package lab

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

// ListLabs godoc
// @Summary List labs
// @Tags Labs
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Rows per page (default 9)"
// @Param query query string false "Search name, head, research area, location"
// @Param type query string false "Lab type"
// @Param status query string false "Lab status"
// @Param equipment_id query int false "Only labs holding this equipment"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/labs [get]
func (h *Handler) ListLabs(c *gin.Context) {
	page, err := h.Service.ListPublic(c.Request.Context(), httpx.ListParams(c, PublicSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListAdminLabs godoc
// @Summary List labs for the admin table
// @Tags Admin Labs
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/labs [get]
func (h *Handler) ListAdminLabs(c *gin.Context) {
	page, err := h.Service.ListAdmin(c.Request.Context(), httpx.ListParams(c, AdminSpec.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetLab godoc
// @Summary Get a lab with its equipment
// @Tags Labs
// @Produce json
// @Param id path int true "Lab ID"
// @Success 200 {object} Lab
// @Failure 404 {object} map[string]string
// @Router /api/v1/labs/{id} [get]
func (h *Handler) GetLab(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	l, err := h.Service.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// ListLabEquipment godoc
// @Summary Page through a lab's equipment
// @Tags Labs
// @Produce json
// @Param id path int true "Lab ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/labs/{id}/equipment [get]
func (h *Handler) ListLabEquipment(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	page, err := h.Service.ListEquipment(c.Request.Context(), id, httpx.ListParams(c, equipmentPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateLab godoc
// @Summary Create a lab
// @Tags Admin Labs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param lab body LabInput true "Lab"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/labs [post]
func (h *Handler) CreateLab(c *gin.Context) {
	var in LabInput
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

// UpdateLab godoc
// @Summary Update a lab
// @Tags Admin Labs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Lab ID"
// @Param lab body LabInput true "Lab"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/labs/{id} [put]
func (h *Handler) UpdateLab(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	var in LabInput
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

// DeleteLab godoc
// @Summary Delete a lab and its equipment assignments
// @Tags Admin Labs
// @Security BearerAuth
// @Produce json
// @Param id path int true "Lab ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/labs/{id} [delete]
func (h *Handler) DeleteLab(c *gin.Context) {
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

// AssignEquipment godoc
// @Summary Assign equipment to a lab
// @Tags Admin Labs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Lab ID"
// @Param body body AssignInput true "Equipment and quantity"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/admin/labs/{id}/equipment [post]
func (h *Handler) AssignEquipment(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	var in AssignInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	res, err := h.Service.AssignEquipment(c.Request.Context(), httpx.MutationRequest(c), id, in, httpx.ListParams(c, equipmentPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UpdateEquipmentQuantity godoc
// @Summary Change the quantity of equipment in a lab
// @Tags Admin Labs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Lab ID"
// @Param equipmentId path int true "Equipment ID"
// @Param body body QuantityInput true "Quantity"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/labs/{id}/equipment/{equipmentId} [put]
func (h *Handler) UpdateEquipmentQuantity(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	equipmentID, ok := httpx.ParseID(c, "equipmentId")
	if !ok {
		return
	}
	var in QuantityInput
	if !httpx.BindJSON(c, &in) {
		return
	}
	res, err := h.Service.UpdateEquipmentQuantity(c.Request.Context(), httpx.MutationRequest(c), id, equipmentID, in, httpx.ListParams(c, equipmentPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RemoveEquipment godoc
// @Summary Remove equipment from a lab
// @Tags Admin Labs
// @Security BearerAuth
// @Produce json
// @Param id path int true "Lab ID"
// @Param equipmentId path int true "Equipment ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/labs/{id}/equipment/{equipmentId} [delete]
func (h *Handler) RemoveEquipment(c *gin.Context) {
	id, ok := httpx.ParseID(c, "id")
	if !ok {
		return
	}
	equipmentID, ok := httpx.ParseID(c, "equipmentId")
	if !ok {
		return
	}
	res, err := h.Service.RemoveEquipment(c.Request.Context(), httpx.MutationRequest(c), id, equipmentID, httpx.ListParams(c, equipmentPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
