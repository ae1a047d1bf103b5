package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/activities"
	"github.com/scour-ai/scour/internal/config"
	"github.com/scour-ai/scour/internal/db"
	"github.com/scour-ai/scour/internal/fetch"
	"github.com/scour-ai/scour/internal/health"
	"github.com/scour-ai/scour/internal/httpapi"
	"github.com/scour-ai/scour/internal/oracle"
	"github.com/scour-ai/scour/internal/searx"
	temporalx "github.com/scour-ai/scour/internal/temporal"
	"github.com/scour-ai/scour/internal/tracing"
	"github.com/scour-ai/scour/internal/workflows"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := tracing.Initialize(tracing.Config{
		Enabled:      cfg.Observability.Tracing.Enabled,
		ServiceName:  "scour-engine",
		OTLPEndpoint: cfg.Observability.Tracing.OTLPEndpoint,
	}, logger); err != nil {
		logger.Warn("Failed to initialize tracing", zap.Error(err))
	}

	// Prometheus metrics endpoint
	if cfg.Observability.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Observability.Metrics.Port)
			logger.Info("Metrics server listening", zap.String("address", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	// Optional Redis page cache
	var cache redis.UniversalClient
	if cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unavailable, page caching disabled", zap.Error(err))
		} else {
			cache = rc
			logger.Info("Page cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// Optional postgres search history
	store, err := db.Open(cfg.Postgres.DSN, logger)
	if err != nil {
		logger.Warn("Postgres unavailable, search history disabled", zap.Error(err))
		store = nil
	} else if store != nil {
		defer store.Close()
		logger.Info("Search history enabled")
	}

	oracleClient := oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, logger)
	searxClient := searx.NewClient(cfg.Searx.BaseURL, cfg.Searx.Timeout, logger)
	fetcher := fetch.New(fetch.Options{
		Timeout:    cfg.Fetch.Timeout,
		PerHostRPS: cfg.Fetch.PerHostRPS,
		Cache:      cache,
		CacheTTL:   cfg.Fetch.CacheTTL,
	}, logger)

	tClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporalx.NewZapAdapter(logger),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer tClient.Close()

	// Worker hosting the search workflow and its activities
	w := worker.New(tClient, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AgentSearch)
	acts := activities.NewActivities(oracleClient, searxClient, fetcher, store, logger)
	w.RegisterActivity(acts)
	w.RegisterActivity(activities.GetSchedulerConfig)
	go func() {
		logger.Info("Temporal worker started", zap.String("queue", cfg.Temporal.TaskQueue))
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Error("Temporal worker exited with error", zap.Error(err))
		}
	}()

	// Health probes for the engine's backends
	hm := health.NewManager(logger)
	hm.Register(health.NewHTTPChecker("oracle", cfg.Oracle.BaseURL+"/healthz", true))
	hm.Register(health.NewHTTPChecker("searx", cfg.Searx.BaseURL+"/healthz", true))
	if cache != nil {
		hm.Register(health.NewRedisChecker(cache))
	}
	if store != nil {
		hm.Register(health.NewPostgresChecker(store.DB()))
	}

	// HTTP API
	runner := temporalx.NewRunner(tClient, cfg.Temporal.TaskQueue, logger)
	apiMux := http.NewServeMux()
	httpapi.NewServer(runner, store, logger).RegisterRoutes(apiMux)
	hm.RegisterRoutes(apiMux)
	apiServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      apiMux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info("API server listening", zap.String("address", cfg.HTTP.Addr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down")

	_ = apiServer.Shutdown(context.Background())
	w.Stop()
}
