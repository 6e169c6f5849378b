package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type signingClient interface {
	SigningSecret() string
}

// Deps carries everything the HTTP surface needs. WebhookGuard, Gatherer and
// the readiness checks are optional.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Catalog         *catalog.Catalog
	Checkout        checkoutsvc.Service
	Orders          orders.Service
	WebhookService  webhookcontrollers.StripeWebhookService
	WebhookGuard    *stripewebhook.IdempotencyGuard
	Stripe          signingClient
	ReadinessChecks map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.FrontendURLs, cfg.App.CORSOriginSuffixes),
	)

	stripeWebhook := func(legacy bool) http.HandlerFunc {
		opts := webhookcontrollers.WebhookOptions{Tolerance: cfg.Stripe.WebhookTolerance, Legacy: legacy}
		if deps.WebhookGuard == nil {
			return webhookcontrollers.StripeWebhook(deps.WebhookService, deps.Stripe, nil, logg, opts)
		}
		return webhookcontrollers.StripeWebhook(deps.WebhookService, deps.Stripe, deps.WebhookGuard, logg, opts)
	}

	r.Get("/ping", controllers.Ping())
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.ReadinessChecks))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Catalog))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.Catalog, logg))
		r.Post("/checkout/sessions", controllers.CheckoutCreate(deps.Checkout, logg))
		r.Get("/orders/{sessionId}", controllers.OrderDetail(deps.Orders, logg))
		r.Post("/webhooks/stripe", stripeWebhook(false))
	})

	// Paths served by the first storefront release; the UI still calls them.
	r.Post("/create-checkout-session", controllers.LegacyCheckoutCreate(deps.Checkout, logg))
	r.Get("/order-details", controllers.LegacyOrderDetails(deps.Orders, logg))
	r.Post("/webhook", stripeWebhook(true))

	return r
}
