package middlewares

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Limiter decides whether a user may act on a debate right now.
type Limiter interface {
	Allow(ctx context.Context, debateID, userID string) (bool, error)
}

// RateLimit rejects requests over the limiter's budget with 429. It must run
// after AuthMiddleware. Limiter failures let the request through.
func RateLimit(limiter Limiter, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		debateID := c.Param("id")
		userID := c.GetString(UserIDKey)

		ok, err := limiter.Allow(c.Request.Context(), debateID, userID)
		if err != nil {
			logger.Warn("rate limiter unavailable",
				"event", "rate_limit_failed",
				"debate_id", debateID,
				"error", err,
			)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down"})
			return
		}
		c.Next()
	}
}
