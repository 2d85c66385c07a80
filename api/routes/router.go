package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lamnguyen-dev/pharmapos-backend/api/controllers"
	"github.com/lamnguyen-dev/pharmapos-backend/api/middleware"
	batchsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/batches"
	ledgersvc "github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	ordersvc "github.com/lamnguyen-dev/pharmapos-backend/internal/orders"
	paymentsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/payments"
	productsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/products"
	returnsvc "github.com/lamnguyen-dev/pharmapos-backend/internal/returns"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	pkgredis "github.com/lamnguyen-dev/pharmapos-backend/pkg/redis"
)

// Services bundles the wired domain services the router exposes.
type Services struct {
	Products productsvc.Service
	Batches  batchsvc.Service
	Ledger   ledgersvc.Service
	Orders   ordersvc.Service
	Returns  returnsvc.Service
	Payments paymentsvc.Service
}

// NewRouter assembles the HTTP surface: health and metrics are open, the
// payment webhook authenticates by signature, and everything else requires a
// bearer token.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *pkgredis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(dbClient, redisClient)))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", controllers.PaymentCallback(svcs.Payments, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(svcs.Products, logg))
			r.Get("/", controllers.ListProducts(svcs.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(svcs.Products, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(svcs.Products, logg))
			r.Put("/{productId}/prices", controllers.UpdateProductPrices(svcs.Products, logg))
			r.Get("/{productId}/batches", controllers.ListProductBatches(svcs.Batches, logg))
			r.Get("/{productId}/movements", controllers.ListProductMovements(svcs.Ledger, logg))
			r.Get("/{productId}/price-changes", controllers.ListProductPriceChanges(svcs.Ledger, logg))
		})

		r.Route("/v1/batches", func(r chi.Router) {
			r.Post("/", controllers.ReceiveBatch(svcs.Batches, logg))
			r.Get("/expiring", controllers.ListExpiringBatches(svcs.Batches, logg))
			r.Get("/{batchId}", controllers.GetBatch(svcs.Batches, logg))
			r.Post("/{batchId}/adjust", controllers.AdjustBatch(svcs.Batches, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(svcs.Orders, logg))
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Post("/{orderId}/payment-intent", controllers.CreateOrderPaymentIntent(svcs.Payments, logg))
			r.Get("/{orderId}/returns", controllers.ListOrderReturns(svcs.Returns, logg))
		})

		r.Route("/v1/returns", func(r chi.Router) {
			r.Post("/", controllers.CreateReturn(svcs.Returns, logg))
			r.Get("/{returnId}", controllers.GetReturn(svcs.Returns, logg))
			r.Post("/{returnId}/process", controllers.ProcessReturn(svcs.Returns, logg))
		})
	})

	return r
}
