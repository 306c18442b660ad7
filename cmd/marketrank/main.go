package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/config"
	dbRedis "github.com/goodshelf/marketrank/internal/db/redis"
	"github.com/goodshelf/marketrank/internal/domain"
	"github.com/goodshelf/marketrank/internal/embedder"
	logpkg "github.com/goodshelf/marketrank/internal/logger"
	"github.com/goodshelf/marketrank/internal/metrics"
	"github.com/goodshelf/marketrank/internal/repository/embcache"
	listingrepo "github.com/goodshelf/marketrank/internal/repository/listing"
	factorsrepo "github.com/goodshelf/marketrank/internal/repository/trustfactors"
	chiTransport "github.com/goodshelf/marketrank/internal/transport/chi"
	openaiEmb "github.com/goodshelf/marketrank/internal/transport/openai"
	healthuc "github.com/goodshelf/marketrank/internal/usecase/health"
	searchuc "github.com/goodshelf/marketrank/internal/usecase/search"
	trustuc "github.com/goodshelf/marketrank/internal/usecase/trust"
	"github.com/goodshelf/marketrank/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting marketrank API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	domain.KeyPrefix = cfg.Storage.KeyPrefix

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register()

	// Composition root: base embedder -> per-listing cache decorator
	baseEmbedder := buildEmbedder(cfg.Embedding, logger)
	cachedEmbedder := embcache.New(baseEmbedder, store, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created", zap.String("provider", cfg.Embedding.Provider))

	listingStore := listingrepo.New(store)
	factorSource := factorsrepo.New(store)

	trustSvc := trustuc.New(
		factorSource,
		time.Duration(cfg.Trust.CacheTTLSec)*time.Second,
		metrics.TrustCacheTotal,
		logger,
	)
	searchSvc := searchuc.New(listingStore, cachedEmbedder, logger).WithTrust(trustSvc)
	healthSvc := healthuc.New(store, healthChecker(baseEmbedder))

	server := chiTransport.NewServer(
		searchSvc, trustSvc, healthSvc,
		chiTransport.Limits{Default: cfg.Search.DefaultLimit, Max: cfg.Search.MaxLimit},
		logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder selects the configured text vectorizer.
func buildEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	if cfg.Provider == "openai" {
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		})
	}
	return embedder.NewHash()
}

// healthChecker adapts embedders that may not implement domain.HealthChecker.
func healthChecker(e domain.Embedder) domain.HealthChecker {
	if hc, ok := e.(domain.HealthChecker); ok {
		return hc
	}
	return noopHealth{}
}

type noopHealth struct{}

func (noopHealth) HealthCheck(context.Context) error { return nil }
