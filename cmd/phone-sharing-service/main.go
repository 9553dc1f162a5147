package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Perlovich/phone-sharing-service/internal/config"
	"github.com/Perlovich/phone-sharing-service/internal/db"
	"github.com/Perlovich/phone-sharing-service/internal/events"
	httpapi "github.com/Perlovich/phone-sharing-service/internal/http"
	"github.com/Perlovich/phone-sharing-service/internal/logger"
	"github.com/Perlovich/phone-sharing-service/internal/metadata"
	"github.com/Perlovich/phone-sharing-service/internal/metrics"
	"github.com/Perlovich/phone-sharing-service/internal/phone"
	"github.com/Perlovich/phone-sharing-service/internal/sequence"
	"github.com/Perlovich/phone-sharing-service/internal/sharing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	// --- ledger ---
	var (
		repo      phone.Repository
		sequences events.SequenceSource
	)
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Fatal("db connect", "error", err)
		}
		defer pool.Close()

		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, log); err != nil {
				log.Fatal("db migrate", "error", err)
			}
		}
		repo = phone.NewPostgresRepository(pool)
		sequences = sequence.NewRepository(pool)
	} else {
		log.Warn("DATABASE_DSN not set, using the in-memory ledger")
		repo = phone.NewMemoryRepository(phone.DefaultCatalog())
	}
	ledger := phone.NewService(repo, phone.SystemClock{}, log)

	// --- metadata ---
	cacheOpts := []metadata.Option{
		metadata.WithToken(cfg.FonoapiToken),
		metadata.WithOffline(cfg.OfflineMode),
		metadata.WithLogger(log),
		metadata.WithMetrics(m),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cacheOpts = append(cacheOpts, metadata.WithStore(metadata.NewRedisStore(rdb)))
	}
	cache := metadata.NewCache(metadata.NewHTTPSource(cfg.FonoapiEndpoint, cfg.FonoapiTimeout), cacheOpts...)

	// --- events ---
	sharingOpts := sharing.Options{Metrics: m, Logger: log}
	if cfg.PublishEvents && cfg.RabbitURL != "" {
		conn, err := events.DialRabbit(cfg.RabbitURL)
		if err != nil {
			log.Fatal("rabbitmq connect", "error", err)
		}
		defer conn.Close()

		publisher, err := events.NewPublisher(conn, events.PublisherOptions{Sequences: sequences})
		if err != nil {
			log.Fatal("create publisher", "error", err)
		}
		defer publisher.Close()
		sharingOpts.Events = publisher
	}
	svc := sharing.NewService(ledger, cache, sharingOpts)

	// --- HTTP ---
	h := httpapi.NewHandler(svc, log)
	r := httpapi.NewRouter(h, promhttp.Handler())

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "offline_mode", cfg.OfflineMode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("http server failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	cancel()

	log.Info("shutdown complete")
}
