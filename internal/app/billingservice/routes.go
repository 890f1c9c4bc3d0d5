// Package billingservice предоставляет маршруты основного приложения.
package billingservice

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/tradeboard/billing-service/internal/config"
	"github.com/tradeboard/billing-service/internal/http/handlers/billing/checkoutcreate"
	"github.com/tradeboard/billing-service/internal/http/handlers/internalapi/subscriptionstatus"
	"github.com/tradeboard/billing-service/internal/http/handlers/payment/paymentlist"
	"github.com/tradeboard/billing-service/internal/http/handlers/plan/planlist"
	"github.com/tradeboard/billing-service/internal/http/handlers/plan/planread"
	"github.com/tradeboard/billing-service/internal/http/handlers/subscription/subscriptionread"
	"github.com/tradeboard/billing-service/internal/http/handlers/webhook/stripewebhook"
	"github.com/tradeboard/billing-service/internal/http/middlewarectx"
	"github.com/tradeboard/billing-service/internal/http/response"
	"github.com/tradeboard/billing-service/internal/lib/sl"
	"github.com/tradeboard/billing-service/internal/paymentprovider"
	catalogservice "github.com/tradeboard/billing-service/internal/services/catalog"
	reconcilerservice "github.com/tradeboard/billing-service/internal/services/reconciler"
	subservice "github.com/tradeboard/billing-service/internal/services/subscription"
	"github.com/tradeboard/billing-service/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, db *repository.Storage,
	reconcilerService *reconcilerservice.Service, catalogService *catalogservice.Service,
	subscriptionService *subservice.Service, providerClient *paymentprovider.Client,
	jwtMaker middlewarectx.TokenParser) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(rate.Limit(5), 10)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/plans", planlist.New(logger, catalogService).ServeHTTP)
		r.Get("/plans/{id}", planread.New(logger, catalogService).ServeHTTP)

		// Webhook endpoint (подпись проверяется в обработчике)
		webhookHandler := stripewebhook.New(logger, reconcilerService,
			cfg.Stripe.WebhookSecret, cfg.Stripe.SecretKey != "")
		r.Post("/webhooks/stripe", webhookHandler.ServeHTTP)
		r.Get("/webhooks/stripe", webhookHandler.ConfigProbe)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			r.Post("/billing/checkout", checkoutcreate.New(logger, providerClient, catalogService, reconcilerService).ServeHTTP)
			r.Get("/subscriptions/me", subscriptionread.New(logger, subscriptionService).ServeHTTP)
			r.Get("/payments/list", paymentlist.New(logger, subscriptionService).ServeHTTP)
		})

		// Межсервисные конечные точки с API-ключом
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.APIKeyMiddleware(logger, cfg.InternalAPI.APIKeyHash))
			r.Get("/internal/subscriptions/{user_uid}", subscriptionstatus.New(logger, subscriptionService).ServeHTTP)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := repository.CheckDatabaseReady(db); err != nil {
			logger.Error("database is not ready", sl.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("database is not ready"))
			return
		}
		render.JSON(w, r, response.OK())
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
