// Package scheduler собирает приложение фоновых задач: сверку пробных
// периодов, обработку обязательств и метрики планировщика.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/config"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/scheduler"
	dueitemsservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/dueitems"
	reconcilerservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/reconciler"
	subscriptionservice "github.com/magabrotheeeer/billing-gatekeeper/internal/services/subscription"
	"github.com/magabrotheeeer/billing-gatekeeper/internal/storage/repository"
)

// App приложение планировщика фоновых задач.
type App struct {
	sched   *scheduler.Scheduler
	metrics *http.Server
	conn    *amqp.Connection
	ch      *amqp.Channel
	db      *repository.Storage
	logger  *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	subscriptionService := subscriptionservice.New(db, logger)
	reconcilerService := reconcilerservice.New(db, subscriptionService,
		rabbitmq.NewPublisher(ch), logger)
	dueItemsService := dueitemsservice.New(db, logger)

	sched := scheduler.New(logger,
		&scheduler.Job{
			Name:     "trial-expiry",
			Interval: cfg.TrialExpiryInterval,
			Run:      reconcilerService.RunExpiredSweep,
		},
		&scheduler.Job{
			Name:     "trial-expiry-daily",
			Interval: cfg.TrialExpiryDailySweep,
			Run:      reconcilerService.RunExpiredSweep,
		},
		&scheduler.Job{
			Name:     "trial-ending",
			Interval: cfg.TrialEndingInterval,
			Run:      reconcilerService.RunEndingSoonSweep,
		},
		&scheduler.Job{
			Name:     "due-items",
			Interval: cfg.DueItemsInterval,
			Run:      dueItemsService.RunSweep,
		},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	sched.Register(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metrics := &http.Server{
		Addr:    cfg.AddressHTTP,
		Handler: mux,
	}

	return &App{
		sched:   sched,
		metrics: metrics,
		conn:    conn,
		ch:      ch,
		db:      db,
		logger:  logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает тикеры задач и сервер метрик, останавливает всё по отмене
// контекста.
func (a *App) Run(ctx context.Context) error {
	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metrics.Addr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", slog.Any("err", err))
		}
	}()

	a.sched.Run(ctx)

	<-ctx.Done()

	a.logger.Info("shutting down scheduler")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to stop metrics server", slog.Any("err", err))
	}

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}
	return nil
}
