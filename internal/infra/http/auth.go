package http

import (
	"net/http"
	"strings"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

const principalContextKey = "principal"

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authenticator == nil {
			writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
			c.Abort()
			return
		}
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			c.Abort()
			return
		}
		principal, err := s.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			c.Abort()
			return
		}
		c.Set(principalContextKey, principal)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), principal.UserID))
		c.Next()
	}
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func getPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}

// actor is only called behind requireAuth.
func actor(c *gin.Context) domain.Actor {
	principal, _ := getPrincipal(c)
	return principal.Actor
}

func requestMeta(c *gin.Context) domain.RequestMeta {
	return domain.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
