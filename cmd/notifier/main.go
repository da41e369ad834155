package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/kafka"
	"github.com/dejobratic/storefront/internal/notifications"
	"github.com/dejobratic/storefront/internal/rabbitmq"
	"github.com/dejobratic/storefront/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("notifier stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(
		telemetry.ParseLevel(cfg.Telemetry.LogLevel),
		slog.String("service", notifications.ServiceName),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    notifications.ServiceName,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	service := notifications.NewService(notifications.NewStore(cfg.Notifier.HistorySize), logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	notifications.NewHandler(service).Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Notifier.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Events.Bus {
	case config.EventBusKafka:
		kafkaMetrics, err := kafka.NewMetrics(otel.Meter(notifications.ServiceName))
		if err != nil {
			return fmt.Errorf("create kafka metrics: %w", err)
		}
		consumer := kafka.NewConsumer(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, cfg.Events.Kafka.ConsumerGroup,
			service, logger, kafkaMetrics)
		defer func() { _ = consumer.Close() }()

		g.Go(func() error {
			logger.Info("consuming order events from kafka", "topic", cfg.Events.Kafka.Topic, "group", cfg.Events.Kafka.ConsumerGroup)
			return consumer.Run(gctx)
		})

	case config.EventBusRabbitMQ:
		consumer, err := rabbitmq.NewConsumer(cfg.Events.RabbitMQ.URL, cfg.Events.RabbitMQ.Exchange, cfg.Events.RabbitMQ.Queue,
			rabbitmq.BindAll, service, logger)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer func() { _ = consumer.Close() }()

		g.Go(func() error {
			logger.Info("consuming order events from rabbitmq", "exchange", cfg.Events.RabbitMQ.Exchange, "queue", cfg.Events.RabbitMQ.Queue)
			return consumer.Run(gctx)
		})

	default:
		logger.Warn("no event bus configured, only direct notifications are accepted")
	}

	g.Go(func() error {
		logger.Info("http server starting", "port", cfg.Notifier.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logger.Info("http server stopped")
		return nil
	})

	return g.Wait()
}
