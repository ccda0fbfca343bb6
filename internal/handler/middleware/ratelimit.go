package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"booking-engine/internal/handler/httperr"

	"github.com/gin-gonic/gin"
)

// Limiter counts one request for key and reports whether it may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit keys on the authenticated customer, falling back to the client
// IP. With failOpen, limiter outages let requests through.
func RateLimit(limiter Limiter, scope string, failOpen bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		if id, ok := GetCustomerID(c); ok {
			key = scope + ":" + id.String()
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limiter error", "error", err.Error())
			if !failOpen {
				httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Rate limiter unavailable", nil)
			}
			return
		}
		if !allowed {
			httperr.AbortWithError(c, http.StatusTooManyRequests, nil, "Rate limit exceeded", nil)
		}
	}
}
