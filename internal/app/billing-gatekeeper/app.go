package billinggatekeeper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/cache"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/config"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sms"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/migrations"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/auth"
	dueitemsservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/dueitems"
	entitlementservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/entitlement"
	notificationservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/notification"
	registrationservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/registration"
	subscriptionservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/subscription"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/storage/repository"
)

// App HTTP-приложение биллингового шлюза.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New собирает приложение: хранилище, миграции, кэш, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	smsClient := sms.NewClient(cfg.SMSProvider, logger)
	paymentClient := paymentprovider.NewClient(cfg.PaymentShopID, cfg.PaymentAddress)

	authService := authservice.New(db, jwtMaker, logger)
	subscriptionService := subscriptionservice.New(db, logger)
	entitlementService := entitlementservice.New(db, cacheRedis, logger)
	registrationService := registrationservice.New(db, smsClient, paymentClient,
		cfg.OTPTTL, cfg.AppName, logger)
	dueItemsService := dueitemsservice.New(db, logger)
	notificationService := notificationservice.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, &Services{
		Auth:         authService,
		Subscription: subscriptionService,
		Entitlement:  entitlementService,
		Registration: registrationService,
		DueItems:     dueItemsService,
		Notification: notificationService,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
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
		if cerr := a.cache.Db.Close(); cerr != nil {
			a.logger.Error("failed to close redis connection", sl.Err(cerr))
		}
		a.db.DB.Close()
		return err
	}
}
