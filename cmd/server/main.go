package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"medtrace/internal/catalog"
	catalogstore "medtrace/internal/catalog/store"
	"medtrace/internal/monitor"
	"medtrace/internal/platform/config"
	"medtrace/internal/platform/httpserver"
	"medtrace/internal/platform/logger"
	platformmetrics "medtrace/internal/platform/metrics"
	platformredis "medtrace/internal/platform/redis"
	"medtrace/internal/transfer/handler"
	transfermetrics "medtrace/internal/transfer/metrics"
	"medtrace/internal/transfer/service"
	transferstore "medtrace/internal/transfer/store"
	"medtrace/pkg/platform/audit"
	"medtrace/pkg/platform/audit/publisher"
	auditmemory "medtrace/pkg/platform/audit/store/memory"
	auditworker "medtrace/pkg/platform/audit/worker"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Custody logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transfers, catalogStore, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Optional catalog cache. A missing or unreachable Redis degrades to
	// direct store reads inside the resolver.
	var cache *goredis.Client
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, catalog cache disabled", "error", err.Error())
	} else if redisClient != nil {
		cache = redisClient.Client
		defer redisClient.Close()
	}
	resolver := catalog.NewResolver(catalogStore, cache, cfg.CatalogCacheTTL, log)

	group, ctx := errgroup.WithContext(ctx)

	auditPublisher, err := buildAuditPipeline(ctx, cfg, log, group)
	if err != nil {
		return err
	}

	domainMetrics := transfermetrics.New()
	transferService, err := service.New(transfers, resolver, log,
		service.WithPublisher(auditPublisher),
		service.WithMetrics(domainMetrics),
	)
	if err != nil {
		return err
	}

	httpMetrics := platformmetrics.New()
	router := chi.NewRouter()
	handler.New(transferService, log, httpMetrics).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting medtrace", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	pendingMonitor := monitor.New(transfers, auditPublisher, domainMetrics, log, cfg.MonitorInterval)
	group.Go(func() error {
		err := pendingMonitor.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildStores selects Postgres when a DSN is configured and the in-memory
// stores otherwise. The returned cleanup is safe to call exactly once.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (transferstore.Store, catalogstore.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Info("no postgres DSN configured, using in-memory stores")
		mem := catalogstore.NewInMemory()
		catalogstore.SeedDev(mem)
		return transferstore.NewInMemory(), mem, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	if err := transferstore.ApplySchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	log.Info("connected to postgres")
	return transferstore.NewPostgres(db), catalogstore.NewPostgres(db), func() { db.Close() }, nil
}

// buildAuditPipeline picks the custody-trail sink: Kafka when brokers are
// configured, otherwise an in-process channel drained into a memory store.
func buildAuditPipeline(ctx context.Context, cfg config.Config, log *slog.Logger, group *errgroup.Group) (audit.Publisher, error) {
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(ctx, cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			return nil, err
		}
		group.Go(func() error {
			<-ctx.Done()
			kafka.Close()
			return nil
		})
		log.Info("custody trail publishing to kafka", "topic", cfg.KafkaAuditTopic)
		return kafka, nil
	}

	channel := publisher.NewChannel(256)
	worker := auditworker.New(auditmemory.New(), channel.Events(), log)
	group.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	log.Info("custody trail publishing to in-process store")
	return channel, nil
}
