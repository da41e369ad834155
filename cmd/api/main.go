package main

import (
	"context"
	"encoding/json"
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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/database"
	idemmemory "github.com/dejobratic/storefront/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/storefront/internal/idempotency/postgres"
	idemredis "github.com/dejobratic/storefront/internal/idempotency/redis"
	"github.com/dejobratic/storefront/internal/jobs"
	"github.com/dejobratic/storefront/internal/kafka"
	"github.com/dejobratic/storefront/internal/orders/adapters"
	httpadapter "github.com/dejobratic/storefront/internal/orders/adapters/http"
	orderspostgres "github.com/dejobratic/storefront/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/storefront/internal/orders/app"
	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/dejobratic/storefront/internal/rabbitmq"
	"github.com/dejobratic/storefront/internal/telemetry"
)

const meterName = "github.com/dejobratic/storefront"

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped with error", "error", err)
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
		slog.String("service", cfg.Service.Name),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	}, telemetry.WithPrometheusRegisterer(registry))
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

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()
	registry.MustRegister(database.NewPoolCollector(pool))

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed successfully", "version", version)
	}

	meter := otel.Meter(meterName)

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create database metrics: %w", err)
	}
	orderMetrics, err := metrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create order metrics: %w", err)
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	repo := adapters.NewObservableRepository(orderspostgres.NewRepository(pool), dbMetrics)

	bus, closeBus, err := newEventBus(cfg.Events, meter, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	idemStore, purger, closeIdem, err := newIdempotencyStore(ctx, cfg.Idempotency, pool)
	if err != nil {
		return err
	}
	defer closeIdem()

	service := ordersapp.NewService(repo, bus, idemStore, logger, orderMetrics)

	expiryJob := jobs.NewPendingOrderExpiryJob(
		repo,
		commands.NewObservableHandler[commands.CancelOrderCommand](
			commands.NewCancelOrderCommandHandler(repo, bus), logger, orderMetrics),
		orderMetrics,
		cfg.Expiry.PendingTTL,
		cfg.Expiry.Schedule,
		logger,
	)
	if err := expiryJob.Start(); err != nil {
		return fmt.Errorf("start pending order expiry job: %w", err)
	}
	defer expiryJob.Stop()

	if purger != nil {
		purgeJob := jobs.NewIdempotencyPurgeJob(purger, cfg.Idempotency.PurgeSchedule, logger)
		if err := purgeJob.Start(); err != nil {
			return fmt.Errorf("start idempotency purge job: %w", err)
		}
		defer purgeJob.Stop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(withRecovery(logger))
	router.Use(withLogging(logger))
	router.Use(httpadapter.WithMetrics(httpMetrics))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	router.Handle(cfg.HTTP.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	httpadapter.NewHandler(service, logger).Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "event_bus", cfg.Events.Bus, "idempotency", cfg.Idempotency.Backend)
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

// newEventBus builds the configured broker publisher wrapped with tracing and
// publish metrics.
func newEventBus(cfg config.EventsConfig, meter metric.Meter, logger *slog.Logger) (ports.EventBus, func(), error) {
	switch cfg.Bus {
	case config.EventBusKafka:
		kafkaMetrics, err := kafka.NewMetrics(meter)
		if err != nil {
			return nil, nil, fmt.Errorf("create kafka metrics: %w", err)
		}
		bus := kafka.NewEventBus(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing order events to kafka", "brokers", cfg.Kafka.Brokers, "topic", bus.Topic())
		return adapters.NewObservableEventBus(bus, kafkaMetrics), func() {
			if err := bus.Close(); err != nil {
				logger.Error("closing kafka writer failed", "error", err)
			}
		}, nil

	case config.EventBusRabbitMQ:
		rabbitMetrics, err := rabbitmq.NewMetrics(meter)
		if err != nil {
			return nil, nil, fmt.Errorf("create rabbitmq metrics: %w", err)
		}
		bus, err := rabbitmq.NewEventBus(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		logger.Info("publishing order events to rabbitmq", "exchange", cfg.RabbitMQ.Exchange)
		return adapters.NewObservableEventBus(bus, rabbitMetrics), func() {
			if err := bus.Close(); err != nil {
				logger.Error("closing rabbitmq channel failed", "error", err)
			}
		}, nil

	default:
		kafkaMetrics, err := kafka.NewMetrics(meter)
		if err != nil {
			return nil, nil, fmt.Errorf("create kafka metrics: %w", err)
		}
		return adapters.NewObservableEventBus(kafka.NewNoopEventBus(), kafkaMetrics), func() {}, nil
	}
}

// newIdempotencyStore returns the configured store and, for stores without
// native expiry, a purger for the cleanup job.
func newIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, pool *pgxpool.Pool) (ports.IdempotencyStore, jobs.Purger, func(), error) {
	switch cfg.Backend {
	case config.IdempotencyRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		store := idemredis.NewStore(client, cfg.TTL)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, nil, func() { _ = client.Close() }, nil

	case config.IdempotencyMemory:
		return idemmemory.NewStore(cfg.TTL), nil, func() {}, nil

	default:
		store := idempostgres.NewStore(pool, cfg.TTL)
		return store, store, func() {}, nil
	}
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func withRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "panic recovered", "error", rec)
					respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
