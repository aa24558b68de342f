package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetAuditLogs handles GET /admin/audit-logs - retrieves audit logs with filtering and pagination
// @Summary Get audit logs
// @Description Retrieve audit logs with optional filters and pagination (admin only)
// @Tags AuditLog
// @Produce json
// @Param user_id query uint false "Filter by user ID"
// @Param action query string false "Filter by action"
// @Param resource query string false "Filter by resource"
// @Param status query string false "Filter by status"
// @Param date_from query string false "Filter from date (YYYY-MM-DD)"
// @Param date_to query string false "Filter to date (YYYY-MM-DD, inclusive)"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Number of records per page (default: 20)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/admin/audit-logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	p := listquery.ParseParams(c.Request.URL.Query(), ListSpec.DefaultPageSize)
	page, err := h.service.GetAuditLogs(c.Request.Context(), p)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetAuditLogByID handles GET /admin/audit-logs/:id - retrieves a specific audit log by ID
// @Summary Get audit log by ID
// @Tags AuditLog
// @Produce json
// @Param id path uint true "Audit Log ID"
// @Success 200 {object} AuditLog
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/admin/audit-logs/{id} [get]
func (h *Handler) GetAuditLogByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audit log ID"})
		return
	}

	entry, err := h.service.GetAuditLogByID(c.Request.Context(), uint(id))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// GetAuditLogStats handles GET /admin/audit-logs/stats - activity over the last 7 days
// @Summary Get audit log statistics
// @Tags AuditLog
// @Produce json
// @Success 200 {object} Stats
// @Router /api/v1/admin/audit-logs/stats [get]
func (h *Handler) GetAuditLogStats(c *gin.Context) {
	since := time.Now().UTC().AddDate(0, 0, -7)
	stats, err := h.service.GetStats(c.Request.Context(), since)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
