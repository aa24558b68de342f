package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/uniresearch/research-portal-backend/internal/auth"
)

const (
	PermissionFull     = "full"
	PermissionReadonly = "readonly"
)

// AccessContext is the explicit caller identity handed to every service call.
// The zero value is an anonymous, read-only caller.
type AccessContext struct {
	UserID         uint
	RoleName       string
	PermissionType string // "full" or "readonly"
}

// NewAccessContext derives permissions from the user's role.
func NewAccessContext(user auth.User) AccessContext {
	ac := AccessContext{UserID: user.ID, RoleName: user.Role, PermissionType: PermissionReadonly}
	switch user.Role {
	case auth.RoleAdmin, auth.RoleEditor:
		ac.PermissionType = PermissionFull
	}
	return ac
}

// CanWrite returns true if the user has write permissions
func (ac AccessContext) CanWrite() bool {
	return ac.PermissionType == PermissionFull
}

// CanRead returns true if the user has read permissions
func (ac AccessContext) CanRead() bool {
	return ac.PermissionType == PermissionFull || ac.PermissionType == PermissionReadonly
}

// UserIDPtr is the user id in the nullable form the audit log stores.
func (ac AccessContext) UserIDPtr() *uint {
	if ac.UserID == 0 {
		return nil
	}
	id := ac.UserID
	return &id
}

// GetAccessContext returns the context set by AuthMiddleware, if any.
func GetAccessContext(c *gin.Context) (AccessContext, bool) {
	raw, exists := c.Get("access_context")
	if !exists {
		return AccessContext{}, false
	}
	ac, ok := raw.(AccessContext)
	return ac, ok
}
