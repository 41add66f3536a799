package middleware

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"

	"github.com/churchapp/backend/internal/services"
)

// RateLimit allows at most limit requests per client IP in each fixed window.
// Without Redis, or when Redis fails, requests pass through.
func RateLimit(rdb *redis.Client, prefix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return rateLimit(rdb, prefix, limit, window, time.Now)
}

func rateLimit(rdb *redis.Client, prefix string, limit int, window time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	if rdb == nil || limit <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := now()
			bucket := t.UnixNano() / int64(window)
			key := fmt.Sprintf("%s:%s:%d", prefix, clientIP(r), bucket)

			ctx := r.Context()
			pipe := rdb.Pipeline()
			incr := pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, window)
			if _, err := pipe.Exec(ctx); err != nil {
				log.Printf("[RATELIMIT] redis error for key=%s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}

			count := incr.Val()
			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				resetAt := time.Unix(0, (bucket+1)*int64(window))
				secs := int(resetAt.Sub(t).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				services.SendErrorResponse(w, "Rate limit exceeded", http.StatusTooManyRequests, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP rewrites RemoteAddr from X-Forwarded-For / X-Real-IP only when
// the server sits behind a trusted proxy. Otherwise clients could pick their
// own rate limit key.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	if trustProxy {
		return chimw.RealIP
	}
	return func(next http.Handler) http.Handler { return next }
}

// clientIP reads RemoteAddr as left by ClientIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
