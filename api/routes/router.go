package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bannersonthefly/banners-backend/api/controllers"
	"github.com/bannersonthefly/banners-backend/api/middleware"
	cartsvc "github.com/bannersonthefly/banners-backend/internal/cart"
	discountsvc "github.com/bannersonthefly/banners-backend/internal/discounts"
	ordersvc "github.com/bannersonthefly/banners-backend/internal/orders"
	recoverysvc "github.com/bannersonthefly/banners-backend/internal/recovery"
	"github.com/bannersonthefly/banners-backend/pkg/config"
	"github.com/bannersonthefly/banners-backend/pkg/db"
	"github.com/bannersonthefly/banners-backend/pkg/logger"
	"github.com/bannersonthefly/banners-backend/pkg/redis"
)

// RouterParams collect every dependency the HTTP surface needs.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     *redis.Client
	Cart      cartsvc.Service
	Discounts discountsvc.Service
	Orders    ordersvc.Service
	Recovery  recoverysvc.Service
}

// NewRouter assembles the chi router for cmd/api.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		// A typed nil *redis.Client would still satisfy the pinger
		// interface, so the readiness probe gets an untyped nil instead.
		if params.Redis != nil {
			r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
		} else {
			r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, nil))
		}
	})

	validatePolicy := middleware.NewRateLimitPolicy(
		"discount-validate",
		cfg.RateLimit.ValidateWindow,
		cfg.RateLimit.ValidateIPLimit,
		cfg.RateLimit.ValidateEmailLimit,
	)

	// Route-inline middleware so the idempotency matcher sees the full
	// chi route pattern.
	idempotency := func(next http.Handler) http.Handler { return next }
	if params.Redis != nil {
		idempotency = middleware.Idempotency(params.Redis, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/cart/quote", controllers.CartQuote(params.Cart, logg))

		r.Route("/discounts", func(r chi.Router) {
			validate := controllers.DiscountValidate(params.Discounts, logg)
			if params.Redis != nil {
				r.With(middleware.RateLimit(validatePolicy, params.Redis, logg)).Post("/validate", validate)
			} else {
				r.Post("/validate", validate)
			}
			r.With(middleware.AdminAuth(cfg.JWT, logg), idempotency).Post("/generate", controllers.DiscountGenerate(params.Discounts, logg))
		})

		r.With(middleware.OptionalAuth(cfg.JWT, logg), idempotency).Post("/orders", controllers.OrderCreate(params.Orders, cfg.Checkout, logg))
		r.Get("/orders/{orderNumber}", controllers.OrderByNumber(params.Orders, logg))

		r.Post("/webhooks/email", controllers.EmailWebhook(params.Recovery, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.JWT, logg))

			r.Route("/abandoned-carts", func(r chi.Router) {
				r.Get("/", controllers.AdminAbandonedCarts(params.Recovery, logg))
				r.With(idempotency).Post("/{cartId}/send-email", controllers.AdminSendRecoveryEmail(params.Recovery, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrdersByEmail(params.Orders, logg))
				r.Post("/{orderId}/status", controllers.AdminOrderUpdateStatus(params.Orders, logg))
				r.Post("/{orderId}/tracking", controllers.AdminOrderSetTracking(params.Orders, logg))
			})
		})
	})

	return r
}
