package spreadsheet

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/apperr"
	"github.com/uniresearch/research-portal-backend/internal/listquery"
)

// Source renders every row matching the list filters in p as a Table.
type Source interface {
	ExportTable(ctx context.Context, p listquery.Params) (Table, error)
}

type Handler struct {
	Sources map[string]Source
	Now     func() time.Time
}

func NewHandler(sources map[string]Source) *Handler {
	return &Handler{Sources: sources, Now: time.Now}
}

// Export downloads an entity list with the same filters as its list endpoint.
// @Summary Export an entity list
// @Tags Admin Export
// @Security BearerAuth
// @Produce octet-stream
// @Param entity path string true "events, grants, publications, labs, equipment, partners or audit-logs"
// @Param format query string false "xlsx (default), csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/{entity}/export [get]
func (h *Handler) Export(c *gin.Context) {
	h.export(c, c.Param("entity"))
}

// For serves the export of one entity on a static route such as
// /admin/grants/export.
func (h *Handler) For(entity string) gin.HandlerFunc {
	return func(c *gin.Context) { h.export(c, entity) }
}

// Entities lists the registered export sources in name order.
func (h *Handler) Entities() []string {
	return h.entities()
}

func (h *Handler) export(c *gin.Context, entity string) {
	src, ok := h.Sources[entity]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown export entity", "entities": h.entities()})
		return
	}
	format, ok := NormalizeFormat(c.Query("format"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: xlsx, csv, pdf"})
		return
	}

	table, err := src.ExportTable(c.Request.Context(), listquery.ParseParams(c.Request.URL.Query(), listquery.MaxPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	file, err := Export(strings.ReplaceAll(entity, "-", "_"), format, table, h.Now())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	log.Printf("📤 exported %d %s rows as %s", len(table.Rows), entity, format)
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *Handler) entities() []string {
	out := make([]string, 0, len(h.Sources))
	for k := range h.Sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
