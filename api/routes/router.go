package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aquatrade/aquatrade-backend/api/controllers"
	"github.com/aquatrade/aquatrade-backend/api/middleware"
	"github.com/aquatrade/aquatrade-backend/internal/deliveries"
	"github.com/aquatrade/aquatrade-backend/internal/ledger"
	"github.com/aquatrade/aquatrade-backend/internal/orders"
	"github.com/aquatrade/aquatrade-backend/internal/payments"
	"github.com/aquatrade/aquatrade-backend/internal/products"
	"github.com/aquatrade/aquatrade-backend/internal/provenance"
	"github.com/aquatrade/aquatrade-backend/internal/withdrawals"
	"github.com/aquatrade/aquatrade-backend/pkg/config"
	"github.com/aquatrade/aquatrade-backend/pkg/db"
	"github.com/aquatrade/aquatrade-backend/pkg/logger"
	pkgredis "github.com/aquatrade/aquatrade-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP pkgredis.Pinger,
	ordersService orders.Service,
	deliveriesService deliveries.Service,
	ledgerService ledger.Service,
	ledgerRepo ledger.Repository,
	withdrawalsService withdrawals.Service,
	paymentsService payments.Service,
	provenanceService provenance.Service,
	productsService products.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", controllers.PaymentWebhook(paymentsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
			r.Get("/{orderId}/delivery", controllers.DeliveryByOrder(deliveriesService, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/{deliveryId}", controllers.DeliveryDetail(deliveriesService, logg))
			r.Get("/{deliveryId}/qr", controllers.DeliveryQR(deliveriesService, logg))
			r.Post("/scan/pickup", controllers.DeliveryScanPickup(deliveriesService, logg))
			r.Post("/scan/receive", controllers.DeliveryScanReceive(deliveriesService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("hauler", logg))
				r.Get("/", controllers.HaulerDeliveries(deliveriesService, logg))
				r.Post("/{deliveryId}/assign", controllers.DeliveryAssign(deliveriesService, logg))
			})
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(ledgerService, logg))
			r.Get("/entries", controllers.WalletEntries(ledgerService, ledgerRepo, logg))
			r.Get("/{walletId}/withdrawals", controllers.WithdrawList(withdrawalsService, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", controllers.WithdrawCreate(withdrawalsService, logg))
			r.Get("/{requestId}", controllers.WithdrawDetail(withdrawalsService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productsService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productsService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("producer", logg))
				r.Post("/", controllers.ProductCreate(productsService, logg))
				r.Get("/mine", controllers.ProducerProducts(productsService, logg))
				r.Post("/{productId}/archive", controllers.ProductArchive(productsService, logg))
			})
		})

		r.Route("/farms", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("producer", logg))
				r.Post("/", controllers.FarmCreate(provenanceService, logg))
				r.Get("/", controllers.FarmList(provenanceService, logg))
			})
			r.Route("/{farmId}", func(r chi.Router) {
				r.Get("/batches", controllers.FarmBatches(provenanceService, logg))
				r.Get("/chain/verify", controllers.FarmChainVerify(provenanceService, logg))
				r.With(middleware.RequireRole("producer", logg)).Post("/batches", controllers.BatchAppend(provenanceService, logg))
			})
		})

		r.Route("/batches/{batchId}", func(r chi.Router) {
			r.Get("/", controllers.BatchDetail(provenanceService, logg))
			r.Get("/verify", controllers.BatchVerify(provenanceService, logg))
			r.With(middleware.RequireRole("producer", logg)).Post("/harvest", controllers.BatchHarvest(provenanceService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Get("/orders/{orderId}/payments", controllers.PaymentsByOrder(paymentsService, logg))
		r.Get("/wallets/{walletId}/verify", controllers.WalletVerify(ledgerService, logg))
		r.Post("/withdrawals/{requestId}/approve", controllers.WithdrawApprove(withdrawalsService, logg))
		r.Post("/withdrawals/{requestId}/reject", controllers.WithdrawReject(withdrawalsService, logg))
	})

	return r
}
