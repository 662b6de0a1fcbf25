package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderdraft/api/controllers"
	catalogcontrollers "github.com/angelmondragon/orderdraft/api/controllers/catalog"
	draftcontrollers "github.com/angelmondragon/orderdraft/api/controllers/drafts"
	"github.com/angelmondragon/orderdraft/api/middleware"
	"github.com/angelmondragon/orderdraft/internal/drafts"
	"github.com/angelmondragon/orderdraft/pkg/config"
	"github.com/angelmondragon/orderdraft/pkg/logger"
	"github.com/angelmondragon/orderdraft/pkg/redis"
)

// Backend is the slice of the admin REST client the proxy routes need.
type Backend interface {
	catalogcontrollers.ProductLister
	catalogcontrollers.RecipientLister
	catalogcontrollers.AddressUpdater
}

// NewRouter wires middleware and routes. redisClient and idempotencyStore may be nil
// when the service runs without redis; gatherer may be nil when metrics are off.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient redis.Pinger,
	idempotencyStore redis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	backend Backend,
	draftService drafts.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient))
	})

	if cfg.Metrics.Enabled && gatherer != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(cfg.JWT.AdminRole, logg),
			middleware.Idempotency(idempotencyStore, logg),
		)

		r.Get("/recipients", catalogcontrollers.Recipients(backend, logg))
		r.Patch("/users/{userId}/address", catalogcontrollers.UpdateUserAddress(backend, logg))

		r.Route("/shops/{shopId}", func(r chi.Router) {
			r.Get("/products", catalogcontrollers.ShopProducts(backend, logg))

			r.Route("/draft", func(r chi.Router) {
				r.Get("/", draftcontrollers.DraftFetch(draftService, logg))
				r.Delete("/", draftcontrollers.DraftCancel(draftService, logg))
				r.Get("/totals", draftcontrollers.DraftTotals(draftService, logg))
				r.Post("/lines", draftcontrollers.DraftAddLine(draftService, logg))
				r.Delete("/lines/{index}", draftcontrollers.DraftRemoveLine(draftService, logg))
				r.Patch("/lines/{itemId}/quantity", draftcontrollers.DraftSetQuantity(draftService, logg))
				r.Put("/recipient", draftcontrollers.DraftSelectRecipient(draftService, logg))
				r.Post("/submit", draftcontrollers.DraftSubmit(draftService, logg))
			})
		})
	})

	return r
}
