package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	identityKey     = "identity"
	requestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if id, ok := identityFrom(c); ok {
			args = append(args, "matricula", id.Matricula)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error(c.Request.Context(), "request", args...)
			return
		}
		s.logger.Info(c.Request.Context(), "request", args...)
	}
}

func (s *HTTPServer) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(c.Request.Context(), "handler panicked", "path", c.Request.URL.Path, "panic", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
			}
		}()
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], common.BearerPrefix) {
		return ""
	}
	return parts[1]
}

func (s *HTTPServer) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is missing!"})
			return
		}
		id, err := s.svc.Users.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is invalid!"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func (s *HTTPServer) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := identityFrom(c); !ok || id.Role != models.RoleAdmin {
			s.fail(c, common.ErrorForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func mustIdentity(c *gin.Context) auth.Identity {
	id, _ := identityFrom(c)
	return id
}
