package apiapp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/infra/metrics"
)

const unmatchedRoute = "unmatched"

func ApplyMiddlewares(r chiRouter, log *zap.Logger, m *metrics.Metrics) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(otelhttp.NewMiddleware("shop-api"))
	r.Use(requestLogger(log, m))
}

// requestLogger logs and counts each request under its route pattern, so
// ids in paths never become label values.
func requestLogger(log *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			m.ObserveHTTP(r.Method, routePattern(r), status, elapsed)
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.Duration("duration", elapsed),
				)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
