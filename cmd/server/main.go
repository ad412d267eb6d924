package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demandradar/demand-radar/internal/analysis"
	"github.com/demandradar/demand-radar/internal/analytics"
	"github.com/demandradar/demand-radar/internal/cache"
	"github.com/demandradar/demand-radar/internal/classifier"
	"github.com/demandradar/demand-radar/internal/config"
	"github.com/demandradar/demand-radar/internal/fetcher"
	"github.com/demandradar/demand-radar/internal/filter"
	"github.com/demandradar/demand-radar/internal/notifications"
	"github.com/demandradar/demand-radar/internal/ratelimit"
	"github.com/demandradar/demand-radar/internal/reddit"
	"github.com/demandradar/demand-radar/internal/scheduler"
	"github.com/demandradar/demand-radar/internal/status"
	"github.com/demandradar/demand-radar/internal/storage"
	"github.com/demandradar/demand-radar/internal/suggest"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Demand Radar")

	// Shared cache and rate counter: Redis when configured, in-process
	// otherwise. Single-instance deployments work fine without Redis.
	var sharedCache cache.Cache
	var counterStore ratelimit.CounterStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		sharedCache = cache.NewRedisCache(redisClient)
		counterStore = ratelimit.NewRedisCounterStore(redisClient)
		logrus.Infof("Using Redis at %s for caches and rate counters", cfg.RedisAddr)
	} else {
		sharedCache = cache.NewMemoryCache()
		counterStore = ratelimit.NewMemoryCounterStore()
		logrus.Info("No REDIS_ADDR configured, using in-process caches and counters")
	}

	// Durable storage: Azure Blob when configured, memory otherwise.
	var store storage.Store
	if cfg.StorageAccount != "" {
		azureStore, err := storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		store = azureStore
	} else {
		store = storage.NewMemoryStorage()
		logrus.Info("No AZURE_STORAGE_ACCOUNT configured, using in-memory storage")
	}

	redditClient := reddit.NewClient(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent, sharedCache)
	limiter := ratelimit.NewLimiter(counterStore, "reddit:requests", cfg.RateLimitCeiling, cfg.RateLimitWindow)
	pacer := fetcher.NewDelayPacer(cfg.FetchDelay)
	fetchService := fetcher.NewService(redditClient, limiter, pacer)

	analyticsService := analytics.NewService(store)

	generator, err := classifier.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logrus.Fatalf("Failed to initialize classifier: %v", err)
	}
	classifierService := classifier.NewService(generator, analyticsService)

	tracker := status.NewService(store)
	analysisService := analysis.NewService(
		fetchService,
		filter.NewService(),
		classifierService,
		tracker,
		limiter,
		analyticsService,
		cfg.PostFetchLimit,
		cfg.CommentFetchLimit,
	)
	suggestService := suggest.NewService(cfg.RedditUserAgent, sharedCache)

	// Digest scheduler
	notifier := notifications.NewService(cfg)
	schedulerService := scheduler.NewService(cfg.DigestSchedule, tracker, notifier)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	registerRoutes(router, &handlers{
		analysis: analysisService,
		tracker:  tracker,
		reddit:   redditClient,
		suggest:  suggestService,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
