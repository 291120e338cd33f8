package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nDmitry/imagefeed/internal/api/rest"
	"github.com/nDmitry/imagefeed/internal/app"
	"github.com/nDmitry/imagefeed/internal/cache"
	"github.com/nDmitry/imagefeed/internal/config"
	"github.com/nDmitry/imagefeed/internal/feed"
	"github.com/nDmitry/imagefeed/internal/httpclient"
	"github.com/nDmitry/imagefeed/internal/loader"
)

const feedTitle = "Image feed"

func main() {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Read(configPath)

	if err != nil {
		app.Logger().Error("Failed to read config", "error", err, "path", configPath)
		os.Exit(1)
	}

	logger := app.Configure(cfg.Log)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received first shutdown signal, starting graceful shutdown...")
		cancel()

		// If we receive a second signal, exit immediately
		<-sigChan
		logger.Info("Received second shutdown signal, exiting immediately...")
		os.Exit(1)
	}()

	backend, err := cache.New(ctx, cfg.Cache)

	if err != nil {
		logger.Error("Failed to open cache", "error", err, "type", cfg.Cache.Type)
		os.Exit(1)
	}

	defer backend.Close()

	client, err := httpclient.New(cfg.Remote)

	if err != nil {
		logger.Error("Failed to create HTTP client", "error", err, "driver", cfg.Remote.Driver)
		os.Exit(1)
	}

	composer, err := feed.NewComposer(client, backend, feed.Options{
		BaseURL:     cfg.Remote.BaseURL,
		PageSize:    cfg.Remote.PageSize,
		Timeout:     cfg.Remote.Timeout,
		MaxAge:      cfg.Cache.MaxAge,
		ImageMaxAge: cfg.Cache.ImageMaxAge,
		Coalesce:    cfg.Remote.Coalesce,
		ImageHosts:  cfg.Remote.ImageHosts,
	})

	if err != nil {
		logger.Error("Failed to create loaders", "error", err)
		os.Exit(1)
	}

	generator := &feed.Generator{
		Title: feedTitle,
		Link:  cfg.Remote.BaseURL,
		Size:  composer.CachedImageSize,
	}

	queue := loader.NewQueue(1)
	defer queue.Close()

	go validatePeriodically(ctx, composer, queue, cfg.Cache.ValidateInterval, logger)

	server := rest.NewServer(composer, generator, cfg.Server.Port)

	if err := server.Run(ctx); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	// Drop whatever expired while serving before the backend is closed
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := composer.ValidateCache(shutdownCtx); err != nil {
		logger.Warn("Cache validation on shutdown failed", "error", err)
	}

	logger.Info("Server exited gracefully")
}

// validatePeriodically drops expired cache entries every interval until ctx is done.
// A run still in flight when the next tick comes is not overlapped.
// Results are reported on queue.
func validatePeriodically(ctx context.Context, composer *feed.Composer, queue *loader.Queue, interval time.Duration, logger *slog.Logger) {
	validate := func(ctx context.Context) (time.Duration, error) {
		started := time.Now()
		err := composer.ValidateCache(ctx)

		return time.Since(started), err
	}

	loader.Periodically(ctx, interval, validate, loader.DeliverOn(ctx, queue, func(took time.Duration, err error) {
		if err != nil {
			logger.Warn("Cache validation failed", "error", err, "duration_ms", took.Milliseconds())
			return
		}

		logger.Debug("Cache validated", "duration_ms", took.Milliseconds())
	}))
}
