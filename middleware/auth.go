package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/uniresearch/research-portal-backend/config"
	"github.com/uniresearch/research-portal-backend/internal/auth"
)

var errNoToken = errors.New("missing Authorization header")

// AuthMiddleware handles JWT authentication and sets up access context
func AuthMiddleware(cfg *config.Config, authSvc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticate(c, cfg, authSvc)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(cfg *config.Config, authSvc auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := authenticate(c, cfg, authSvc); err == nil {
			setUser(c, user)
		}
		c.Next()
	}
}

func setUser(c *gin.Context, user auth.User) {
	c.Set("user", user)
	c.Set("user_id", user.ID)
	c.Set("access_context", NewAccessContext(user))
}

func authenticate(c *gin.Context, cfg *config.Config, authSvc auth.Service) (auth.User, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return auth.User{}, errNoToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return auth.User{}, errors.New("invalid Authorization header")
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.JWTAccessSecret), nil
	})
	if err != nil || !token.Valid {
		return auth.User{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return auth.User{}, errors.New("invalid claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return auth.User{}, errors.New("user_id missing in token")
	}

	user, err := authSvc.GetUserByID(uint(userIDFloat))
	if err != nil {
		return auth.User{}, errors.New("user not found")
	}
	if user.Status != auth.StatusActive {
		return auth.User{}, auth.ErrInactive
	}
	return user, nil
}
