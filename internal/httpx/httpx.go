// Package httpx holds the small request helpers every entity handler uses.
package httpx

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/listquery"
	"github.com/uniresearch/research-portal-backend/internal/mutation"
	"github.com/uniresearch/research-portal-backend/internal/validation"
	"github.com/uniresearch/research-portal-backend/middleware"
)

// ParseID reads a positive integer path parameter, answering 400 otherwise.
func ParseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return uint(id), true
}

// BindJSON binds the body into dst, answering 400 with a field map on failure.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "errors": validation.FromBinding(err)})
		return false
	}
	return true
}

// ListParams parses paging and filters from the query string.
func ListParams(c *gin.Context, defaultPageSize int) listquery.Params {
	return listquery.ParseParams(c.Request.URL.Query(), defaultPageSize)
}

// MutationRequest captures who is writing and from where.
func MutationRequest(c *gin.Context) mutation.Request {
	ac, _ := middleware.GetAccessContext(c)
	return mutation.Request{Access: ac, IP: middleware.GetIPFromContext(c)}
}
