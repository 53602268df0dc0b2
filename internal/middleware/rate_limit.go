package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	CartMaxRequests = 20 // Par minute et par IP
	CartCooldown    = 1 * time.Minute
)

// CartRateLimit limite les mutations de panier par IP (anti-spam).
// Sans Redis, la limite est désactivée. Une erreur Redis laisse passer la requête.
func CartRateLimit(rdb *redis.Client, limit int) gin.HandlerFunc {
	if limit <= 0 {
		limit = CartMaxRequests
	}
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "cart_requests:" + c.ClientIP()

		requests, _ := rdb.Get(ctx, key).Int()
		if requests >= limit {
			c.Header("Retry-After", fmt.Sprintf("%d", int(CartCooldown.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"error":       "RATE_LIMITED",
				"message":     "Trop de modifications du panier. Ralentissez un peu",
				"retry_after": int(CartCooldown.Seconds()),
			})
			return
		}

		// Incrémenter
		pipe := rdb.Pipeline()
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, CartCooldown)
		_, _ = pipe.Exec(ctx)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limit-requests-1))

		c.Next()
	}
}
