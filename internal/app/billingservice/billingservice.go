// Package billingservice собирает и запускает HTTP-приложение биллинга.
package billingservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/tradeboard/billing-service/internal/cache"
	"github.com/tradeboard/billing-service/internal/config"
	"github.com/tradeboard/billing-service/internal/lib/jwt"
	"github.com/tradeboard/billing-service/internal/migrations"
	"github.com/tradeboard/billing-service/internal/paymentprovider"
	"github.com/tradeboard/billing-service/internal/rabbitmq"
	catalogservice "github.com/tradeboard/billing-service/internal/services/catalog"
	notifierservice "github.com/tradeboard/billing-service/internal/services/notifier"
	reconcilerservice "github.com/tradeboard/billing-service/internal/services/reconciler"
	subservice "github.com/tradeboard/billing-service/internal/services/subscription"
	"github.com/tradeboard/billing-service/internal/storage/repository"
)

// App — HTTP-приложение биллинг-сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New собирает приложение: хранилище, миграции, кэш, RabbitMQ,
// клиент Stripe, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection.URLRabbitMQ, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQConnection.Exchange, rabbitmq.GetBillingQueues())
	if err != nil {
		return nil, err
	}

	providerClient := paymentprovider.NewClient(cfg.Stripe.SecretKey)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	notifier := notifierservice.New(notifierservice.NewAMQPPublisher(ch), cfg.RabbitMQConnection.Exchange)
	catalogService := catalogservice.New(logger, db, cacheRedis)
	subscriptionService := subservice.New(logger, db)
	reconcilerService := reconcilerservice.New(logger, db, catalogService, providerClient, notifier)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, db,
		reconcilerService, catalogService, subscriptionService, providerClient, jwtMaker)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", slog.String("error", closeErr.Error()))
		}
		return err
	}
}
