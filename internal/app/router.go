package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/printforge/printforge/internal/auth"
	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/observability"
	"github.com/printforge/printforge/internal/orders"
	"github.com/printforge/printforge/internal/pricing/books"
	"github.com/printforge/printforge/internal/production"
	"github.com/printforge/printforge/internal/shipment"
	"github.com/printforge/printforge/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	CatalogHandler    *catalog.Handler
	PricingHandler    *books.Handler
	OrdersHandler     *orders.Handler
	ProductionHandler *production.Handler
	ShipmentHandler   *shipment.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router for the storefront API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/pricing", params.PricingHandler.MountRoutes)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/shipping", params.ShipmentHandler.MountRoutes)
		r.Route("/production", params.ProductionHandler.MountRoutes)

		r.Route("/admin", func(r chi.Router) {
			r.Route("/pricing", params.PricingHandler.MountAdminRoutes)
			r.Route("/orders", params.OrdersHandler.MountAdminRoutes)
		})

		webhookLimit := 120
		if params.Config != nil && params.Config.WebhookRateLimit > 0 {
			webhookLimit = params.Config.WebhookRateLimit
		}
		r.Route("/webhooks", func(r chi.Router) {
			r.Use(httprate.Limit(webhookLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			params.ShipmentHandler.MountWebhookRoutes(r)
			params.OrdersHandler.MountWebhookRoutes(r)
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
