package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/clipforge/clipforge/internal/cache"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/generator"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/middleware"
	"github.com/clipforge/clipforge/internal/pipeline"
	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/storage"
	"github.com/clipforge/clipforge/internal/tracing"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize tracer, continuing without tracing")
		} else {
			defer closer.Close()
		}
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// An empty endpoint means sources are local files only.
	var resolver *storage.Storage
	if cfg.Storage.Endpoint != "" {
		resolver, err = storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
	} else {
		resolver = storage.NewLocal()
	}

	// The probe cache is an optimization; run without it if Redis is down.
	probeCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.WithError(err).Warn("failed to connect to Redis, probe caching disabled")
		probeCache = nil
	} else {
		defer probeCache.Close()
	}

	ffmpeg := pipeline.NewFFmpeg(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath)

	outputs, err := pipeline.NewOutputManager(cfg.Pipeline.OutputDir, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize output directory: %v", err)
	}
	if cfg.Storage.Endpoint != "" {
		outputs.SetArchive(resolver)
	}

	executor := pipeline.NewExecutor(ffmpeg, outputs, resolver,
		cfg.Pipeline.TempDir, cfg.Pipeline.StageTimeout, logger)

	service := generator.NewService(repo, executor, outputs, logger)

	// Processing runs either on the in-process pool or through RabbitMQ when
	// workers are deployed separately.
	if cfg.Queue.Enabled {
		q, err := queue.New(cfg.Queue)
		if err != nil {
			logger.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
		service.SetDispatcher(q)
		logger.Info("dispatching process requests through RabbitMQ")
	} else {
		pool := generator.NewPool(cfg.Pipeline.WorkerCount, service.Run, logger)
		defer pool.Stop()
		service.SetDispatcher(pool)
		logger.Infof("started in-process worker pool with %d workers", cfg.Pipeline.WorkerCount)
	}

	api := &API{
		service:  service,
		probe:    ffmpeg,
		cache:    probeCache,
		db:       db,
		probeTTL: cfg.Pipeline.ProbeCacheTTL,
		logger:   logger,
	}

	rateLimiter := middleware.NewRateLimiter(10, 20)
	router := setupRouter(api, rateLimiter)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server stopped")
}
