package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const clientIPKey = "client_ip"

// proxy headers checked in order before RemoteAddr
var forwardedHeaders = []string{"X-Forwarded-For", "X-Real-Ip", "CF-Connecting-IP"}

// AuditMiddleware stores the caller's address so mutations can be attributed
// in the audit log.
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientIPKey, clientIP(c))
		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	for _, h := range forwardedHeaders {
		v := c.GetHeader(h)
		if v == "" {
			continue
		}
		// X-Forwarded-For lists the originating client first
		first := strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}

// GetIPFromContext returns the address AuditMiddleware stored, resolving it
// on the spot for routes mounted outside the middleware.
func GetIPFromContext(c *gin.Context) string {
	if ip, ok := c.Get(clientIPKey); ok {
		if s, ok := ip.(string); ok {
			return s
		}
	}
	return clientIP(c)
}
