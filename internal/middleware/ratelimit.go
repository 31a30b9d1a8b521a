package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimit builds a sliding-window admission-control middleware keyed
// by client IP. Each sensitive operation class gets its own limiter
// instance with an independent window and ceiling, and the middleware
// runs before authentication so over-limit callers are rejected before
// any credential or ownership work.
func RateLimit(store limiter.Store, limit int64, period time.Duration) gin.HandlerFunc {
	instance := limiter.New(store, limiter.Rate{
		Period: period,
		Limit:  limit,
	})
	return mgin.NewMiddleware(instance)
}

// NewRedisLimiterStore creates a limiter store on the shared Redis
// client. prefix isolates the counters of one operation class.
func NewRedisLimiterStore(client *redis.Client, prefix string) (limiter.Store, error) {
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: prefix,
	})
}
