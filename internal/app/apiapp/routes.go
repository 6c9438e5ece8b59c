package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/config"
	"github.com/HyperSlump/shop-sub000/internal/infra/metrics"
	catalogsvc "github.com/HyperSlump/shop-sub000/internal/services/catalog"
	checkoutsvc "github.com/HyperSlump/shop-sub000/internal/services/checkout"
	ratesvc "github.com/HyperSlump/shop-sub000/internal/services/rate"
	shippingsvc "github.com/HyperSlump/shop-sub000/internal/services/shipping"
	webhooksvc "github.com/HyperSlump/shop-sub000/internal/services/webhook"
	httperrors "github.com/HyperSlump/shop-sub000/internal/transport/http/errors"
	"github.com/HyperSlump/shop-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	CatalogService  *catalogsvc.Service
	CheckoutService *checkoutsvc.Service
	ShippingService *shippingsvc.Service
	WebhookService  *webhooksvc.Service
	RateLimiter     *ratesvc.Limiter
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	productsHandler := handlers.NewProductsHandler(deps.CatalogService)
	checkoutHandler := handlers.NewCheckoutHandler(deps.CheckoutService)
	shippingHandler := handlers.NewShippingHandler(deps.ShippingService)
	webhookHandler := handlers.NewWebhookHandler(deps.WebhookService, deps.Config.Webhook.MaxBodyBytes)

	r.Get("/healthz", healthHandler.Handle)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Get("/products", productsHandler.List)
	r.With(RateLimit(deps.RateLimiter, "checkout", deps.Logger)).Post("/checkout", checkoutHandler.Create)
	r.With(RateLimit(deps.RateLimiter, "shipping", deps.Logger)).Post("/shipping-rates", shippingHandler.Rates)
	r.Post("/webhook", webhookHandler.Handle)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
}
