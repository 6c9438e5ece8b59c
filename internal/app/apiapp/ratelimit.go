package apiapp

import (
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	ratesvc "github.com/HyperSlump/shop-sub000/internal/services/rate"
	httperrors "github.com/HyperSlump/shop-sub000/internal/transport/http/errors"
)

// RateLimit throttles a route per client IP. A limiter outage lets the
// request through so Redis trouble never blocks checkout.
func RateLimit(limiter *ratesvc.Limiter, scope string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !limiter.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			retryAfter, allowed, err := limiter.Allow(r.Context(), scope, clientIP(r))
			if err != nil {
				if log != nil {
					log.Warn("rate limiter unavailable, allowing request", zap.String("scope", scope), zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				seconds := ratesvc.RetryAfterSeconds(retryAfter)
				w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
				httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
					Code:          "RATE_LIMITED",
					Message:       "too many requests, try again later",
					RetryAfterSec: seconds,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP reads RemoteAddr, which chi's RealIP has already rewritten.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
