package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"contractflow/internal/domain"
	"contractflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

// limitByClientIP guards the unauthenticated routes: login and the public
// signing page. The limit is per client address and route.
func (s *Server) limitByClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP() + ":route:" + c.FullPath()
		if !s.enforceRateLimit(c, key, s.rateLimitPublic) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) limitByUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := getPrincipal(c)
		if !ok {
			c.Next()
			return
		}
		key := "user:" + strconv.FormatInt(principal.UserID, 10)
		if !s.enforceRateLimit(c, key, s.rateLimitRequests) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) enforceRateLimit(c *gin.Context, key string, limit int) bool {
	if s.rateLimiter == nil || limit <= 0 {
		return true
	}
	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, limit, s.rateLimitWindow)
	if err != nil {
		logger.Warn(c.Request.Context(), "rate limiter unavailable", "key", key, "error", err)
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if decision.ResetAt.IsZero() {
		return
	}
	c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	if !decision.Allowed {
		retryAfter := int64(math.Ceil(time.Until(decision.ResetAt).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
}
