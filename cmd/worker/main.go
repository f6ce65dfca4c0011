package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/database"
	"github.com/clipforge/clipforge/internal/generator"
	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/metrics"
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
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName+"-worker", cfg.Tracing.JaegerEndpoint)
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

	var resolver *storage.Storage
	if cfg.Storage.Endpoint != "" {
		resolver, err = storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
	} else {
		resolver = storage.NewLocal()
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

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pipeline failures are recorded on the project record; the delivery is
	// acknowledged either way so a broken project does not loop forever.
	err = q.Consume(ctx, cfg.Pipeline.WorkerCount, func(ctx context.Context, msg queue.ProcessMessage) error {
		if err := service.Run(ctx, msg.ProjectID); err != nil {
			logger.WithProjectID(msg.ProjectID).WithError(err).Error("pipeline run failed")
		}
		return nil
	})
	if err != nil {
		logger.Fatalf("Failed to start consumer: %v", err)
	}

	// Sample the broker backlog into the queue depth gauge.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := q.Depth()
				if err != nil {
					logger.WithError(err).Debug("failed to inspect queue depth")
					continue
				}
				metrics.QueueDepth.Set(float64(depth))
			}
		}
	}()

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort)
	go func() {
		logger.Infof("starting metrics server on port %d", cfg.Server.MetricsPort)
		if err := metricsServer.Start(); err != nil {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	logger.Infof("worker started, consuming with prefetch %d", cfg.Pipeline.WorkerCount)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("failed to shut down metrics server")
	}

	logger.Info("worker stopped")
}
