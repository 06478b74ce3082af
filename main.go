package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcode-server/internal/cache"
	"transcode-server/internal/database"
	"transcode-server/internal/handlers"
	"transcode-server/internal/logging"
	"transcode-server/internal/memory"
	"transcode-server/internal/metrics"
	"transcode-server/internal/middleware"
	"transcode-server/internal/pipeline"
	"transcode-server/internal/startup"
	"transcode-server/internal/storage"
	"transcode-server/internal/transcoder"
)

func main() {
	startTime := time.Now()
	ctx := context.Background()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error("failed to close database: %v", err)
		}
	}()

	var store storage.ObjectStore
	if config.S3Bucket != "" {
		s3store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  config.S3Endpoint,
			Region:    config.S3Region,
			Bucket:    config.S3Bucket,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
		})
		if err != nil {
			startup.LogFatal("Failed to initialize object storage: %v", err)
		}
		store = s3store
	} else {
		logging.Warn("S3_BUCKET not set, using in-memory object storage (local development only)")
		store = storage.NewMemoryStore()
	}

	pipeline.InitVips()
	defer pipeline.ShutdownVips()

	engine := transcoder.NewFFmpeg(config.FFmpegPath, config.FFprobePath)
	video := transcoder.New(engine, store, db, config.DefaultCRF)

	proc := pipeline.NewProcessor(pipeline.NewVipsEncoder(), pipeline.DefaultOptions())
	image := transcoder.NewImageOrchestrator(proc, store, db)

	urlCache := cache.NewTTL(config.SignedURLTTL, time.Minute)
	defer urlCache.Stop()

	h := handlers.New(db, store, config.S3Bucket, video, image, urlCache, config.SignedURLTTL, config.MaxConcurrentJobs)
	router := h.Router()

	loggingConfig := middleware.DefaultLoggingConfig()
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.Serve(config.MetricsPort)
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // encodes can outlast any fixed write timeout
		IdleTimeout:  60 * time.Second,
	}

	// Termination exits promptly; in-flight jobs are not drained. Their
	// records stay in the processing state until the caller resubmits.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logging.Info("Received %v, shutting down", sig)
		if err := srv.Close(); err != nil {
			logging.Error("Server close error: %v", err)
		}
	}()

	logging.Info("transcode-server listening on :%s (started in %s)",
		config.Port, time.Since(startTime).Round(time.Millisecond))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}
