package http

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"loan-portal/observability"
)

// clientKey limits signed-in users by account and everyone else by IP.
func clientKey(r *http.Request) string {
	if s := SessionFrom(r.Context()); s.Valid() {
		return "user:" + s.UserID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

func RateLimitMiddleware(
	limiter *RateLimiter,
	metrics *observability.Metrics,
	route string,
	next http.Handler,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := limiter.Allow(clientKey(r))
		if !allowed {
			metrics.RateLimited.WithLabelValues(route).Inc()
			secs := int(math.Ceil(retryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
