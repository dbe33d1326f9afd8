package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seo-optimizer/tag-inspector/cache"
	"github.com/seo-optimizer/tag-inspector/config"
	"github.com/seo-optimizer/tag-inspector/fetcher"
	"github.com/seo-optimizer/tag-inspector/inspector"
	"github.com/seo-optimizer/tag-inspector/logging"
	"github.com/seo-optimizer/tag-inspector/middleware"
	"github.com/seo-optimizer/tag-inspector/server"
	"github.com/seo-optimizer/tag-inspector/stats"
)

const (
	// Statistics for the current and previous month are kept
	statsRetainMonths = 2
	visitorWindow     = 24 * time.Hour
	housekeeping      = time.Hour
	shutdownTimeout   = 10 * time.Second
)

func main() {
	// Load environment configuration
	envFile, err := config.LoadEnvFiles()
	if err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	if envFile == "" {
		logger.Info("no .env file found, using environment variables")
	} else {
		logger.Info("loaded env file", zap.String("file", envFile))
	}

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize services
	store, err := cache.New(ctx, cache.Options{
		Backend:         cfg.CacheBackend,
		TTL:             cfg.CacheTTL,
		CleanupInterval: cfg.CacheCleanupInterval,
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		RedisDB:         cfg.RedisDB,
	})
	if err != nil {
		logger.Fatal("failed to initialize cache", zap.String("backend", cfg.CacheBackend), zap.Error(err))
	}
	defer store.Close()

	storage, err := stats.NewStorage(cfg.DataDir, logger.Named("stats"))
	if err != nil {
		logger.Fatal("failed to initialize statistics", zap.String("dataDir", cfg.DataDir), zap.Error(err))
	}
	visitors := stats.NewVisitors()

	pageFetcher := fetcher.New(fetcher.Options{
		Timeout:      cfg.FetchTimeout,
		MaxBodyBytes: cfg.FetchMaxBodyBytes,
		UserAgent:    cfg.UserAgent,
	})
	insp := inspector.New(pageFetcher, store, inspector.Options{
		Stats:    storage,
		Visitors: visitors,
		Logger:   logger.Named("inspector"),
	})

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rateLimiter.Run(ctx, 5*time.Minute, time.Hour)

	srv, err := server.New(insp, server.Options{
		Stats:       storage,
		Visitors:    visitors,
		RateLimiter: rateLimiter,
		Logger:      logger.Named("http"),
		DevMode:     cfg.DevMode,
	})
	if err != nil {
		logger.Fatal("failed to initialize server", zap.Error(err))
	}

	go runHousekeeping(ctx, storage, visitors)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", "http://localhost:"+cfg.Port),
			zap.String("cache", cfg.CacheBackend),
			zap.Bool("devMode", cfg.DevMode),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := storage.Shutdown(); err != nil {
		logger.Error("failed to save statistics", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// runHousekeeping prunes old statistics and idle visitors until ctx is done
func runHousekeeping(ctx context.Context, storage *stats.Storage, visitors *stats.Visitors) {
	ticker := time.NewTicker(housekeeping)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			storage.Cleanup(statsRetainMonths)
			visitors.Prune(visitorWindow)
		}
	}
}
