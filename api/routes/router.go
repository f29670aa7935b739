package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amosgichamba/teabroker-backend/api/controllers"
	"github.com/amosgichamba/teabroker-backend/api/middleware"
	"github.com/amosgichamba/teabroker-backend/internal/assignments"
	"github.com/amosgichamba/teabroker-backend/internal/contacts"
	"github.com/amosgichamba/teabroker-backend/internal/history"
	"github.com/amosgichamba/teabroker-backend/internal/shipments"
	"github.com/amosgichamba/teabroker-backend/internal/stocks"
	"github.com/amosgichamba/teabroker-backend/internal/users"
	pkgauth "github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/config"
	"github.com/amosgichamba/teabroker-backend/pkg/logger"
	"github.com/amosgichamba/teabroker-backend/pkg/metrics"
	pkgredis "github.com/amosgichamba/teabroker-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   pkgredis.IdempotencyStore
	Registry      *prometheus.Registry
	HTTPMetrics   *metrics.HTTPMetrics
	StockService  stocks.Service
	StockImporter *stocks.Importer
	StockExporter *stocks.Exporter
	Assignments   assignments.Service
	Shipments     shipments.Service
	History       history.Repository
	Users         users.Service
	Contacts      contacts.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// The contact form is the only unauthenticated business endpoint.
	r.Post("/api/v1/contacts", controllers.CreateContact(deps.Contacts, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", controllers.ListStocks(deps.StockService, logg))
			r.Get("/{stockId}", controllers.GetStock(deps.StockService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAction(pkgauth.ActionManageStocks, logg))
				r.Post("/", controllers.CreateStock(deps.StockService, logg))
				r.Put("/{stockId}", controllers.UpdateStock(deps.StockService, logg))
				r.Delete("/{stockId}", controllers.DeleteStock(deps.StockService, logg))
				r.Post("/{stockId}/adjust", controllers.AdjustStock(deps.StockService, logg))
				r.Post("/import", controllers.ImportStocks(deps.StockImporter, logg))
				r.Get("/export", controllers.ExportStocks(deps.StockExporter, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAction(pkgauth.ActionAssignStock, logg))
				r.Get("/{stockId}/assignments", controllers.ListStockAssignments(deps.Assignments, logg))
				r.Post("/{stockId}/assign", controllers.AssignStock(deps.Assignments, logg))
				r.Post("/bulk-assign", controllers.BulkAssignStocks(deps.Assignments, logg))
				r.Delete("/{stockId}/assign/{userCognitoId}", controllers.UnassignStock(deps.Assignments, logg))
			})
		})

		r.Get("/assignments", controllers.ListMyAssignments(deps.Assignments, logg))

		r.Route("/shipments", func(r chi.Router) {
			r.Post("/", controllers.CreateShipment(deps.Shipments, logg))
			r.Get("/", controllers.ListShipments(deps.Shipments, logg))
			r.Get("/{shipmentId}", controllers.GetShipment(deps.Shipments, logg))
			r.Put("/{shipmentId}", controllers.UpdateShipment(deps.Shipments, logg))
			r.Delete("/{shipmentId}", controllers.DeleteShipment(deps.Shipments, logg))
			r.With(middleware.RequireAction(pkgauth.ActionUpdateShipmentStatus, logg)).
				Patch("/{shipmentId}/status", controllers.UpdateShipmentStatus(deps.Shipments, logg))
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/stocks", controllers.ListStockHistory(deps.History, logg))
			r.Get("/shipments", controllers.ListShipmentHistory(deps.History, logg))
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Use(middleware.RequireAction(pkgauth.ActionManageContacts, logg))
			r.Get("/", controllers.ListContacts(deps.Contacts, logg))
			r.Post("/{contactId}/resolve", controllers.ResolveContact(deps.Contacts, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.Me(deps.Users, logg))
			r.With(middleware.RequireAction(pkgauth.ActionListUsers, logg)).
				Get("/", controllers.ListUsers(deps.Users, logg))
		})
	})

	return r
}
