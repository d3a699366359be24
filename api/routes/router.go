package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/innkeeplabs/innkeep-backend/api/controllers"
	"github.com/innkeeplabs/innkeep-backend/api/middleware"
	"github.com/innkeeplabs/innkeep-backend/internal/availability"
	"github.com/innkeeplabs/innkeep-backend/internal/catalog"
	"github.com/innkeeplabs/innkeep-backend/internal/inventory"
	"github.com/innkeeplabs/innkeep-backend/internal/reservation"
	"github.com/innkeeplabs/innkeep-backend/pkg/config"
	"github.com/innkeeplabs/innkeep-backend/pkg/db"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
	"github.com/innkeeplabs/innkeep-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogService catalog.Service,
	reservationService reservation.Service,
	inventoryService *inventory.Service,
	availabilityService *availability.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A nil *redis.Client must stay a nil interface so the idempotency
	// middleware can detect the store is absent.
	var idemStore redis.IdempotencyStore
	var redisP redis.Pinger
	if redisClient != nil {
		idemStore = redisClient
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.Identity, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", controllers.ResourceList(catalogService, logg))
			r.Post("/", controllers.ResourceCreate(catalogService, logg))
			r.Route("/{resourceId}", func(r chi.Router) {
				r.Get("/", controllers.ResourceGet(catalogService, logg))
				r.Patch("/capacity", controllers.ResourceUpdateCapacity(catalogService, logg))
				r.Post("/retire", controllers.ResourceRetire(catalogService, logg))

				r.Get("/availability", controllers.AvailabilityCheck(availabilityService, logg))

				r.Route("/stock", func(r chi.Router) {
					r.Get("/", controllers.StockQuery(availabilityService, logg))
					r.Post("/initial-load", controllers.StockInitialLoad(inventoryService, logg))
					r.Post("/adjust", controllers.StockAdjust(inventoryService, logg))
					r.Post("/waste", controllers.StockWaste(inventoryService, logg))
					r.Post("/consume", controllers.StockConsume(inventoryService, logg))
				})
			})
		})

		r.Get("/availability", controllers.AvailabilitySearch(availabilityService, logg))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.ReservationCreate(reservationService, logg))
			r.Route("/{reservationId}", func(r chi.Router) {
				r.Get("/", controllers.ReservationGet(reservationService, logg))
				r.Post("/confirm", controllers.ReservationConfirm(reservationService, logg))
				r.Post("/cancel", controllers.ReservationCancel(reservationService, logg))
				r.Post("/release", controllers.ReservationRelease(reservationService, logg))
			})
		})
	})

	return r
}
