package storage

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// Serve streams a stored object.
// @Summary Download a stored file
// @Tags Storage
// @Produce octet-stream
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /storage/{bucket}/{path} [get]
func (h *Handler) Serve(c *gin.Context) {
	st, ok := h.Service.Store(c.Param("bucket"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "bucket not found"})
		return
	}
	key := strings.TrimPrefix(c.Param("path"), "/")

	info, body, err := st.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		log.Printf("❌ storage read %s/%s failed: %v", c.Param("bucket"), key, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file path"})
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Printf("⚠️ storage stream %s/%s interrupted: %v", c.Param("bucket"), key, err)
	}
}
