// Package apperr holds the sentinel errors services return and the single
// place that maps them onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/uniresearch/research-portal-backend/internal/validation"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrNoData    = errors.New("no data to export")
	ErrForbidden = errors.New("write access denied")
)

// ConflictError is a duplicate natural key; Field names the offending column.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFound wraps ErrNotFound with the resource label used in the response.
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// FromDB translates gorm errors into sentinels. Unique violations become a
// ConflictError on field/value.
func FromDB(err error, what, field, value string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(what)
	case IsUniqueViolation(err):
		return &ConflictError{Field: field, Value: value}
	}
	return err
}

// IsUniqueViolation recognises duplicate key errors from postgres and sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}

// Respond writes err as JSON with the matching status code. Unknown errors are
// logged and reported as a generic 500 so store details never leak.
func Respond(c *gin.Context, err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "errors": fe})
		return
	}

	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":  conflict.Error(),
			"errors": validation.FieldErrors{conflict.Field: "already exists"},
		})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no records match the current filters", "code": "no_data"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
	default:
		log.Printf("❌ %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
	}
}
