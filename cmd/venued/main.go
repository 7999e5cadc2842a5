package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"venue-admin-backend/config"
	"venue-admin-backend/internal/api"
	"venue-admin-backend/internal/backend"
	"venue-admin-backend/internal/cache"
	"venue-admin-backend/internal/db"
	"venue-admin-backend/internal/events"
	"venue-admin-backend/internal/logger"
	"venue-admin-backend/internal/metrics"
	"venue-admin-backend/internal/notification"
	"venue-admin-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	sugar, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer sugar.Sync()
	sugar.Infow("configuration loaded", "path", configPath)

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		sugar.Fatalw("invalid schedule timezone", "timezone", cfg.Schedule.Timezone, "error", err)
	}

	// The database holds the persistent cache and push subscriptions. Without
	// it the service still runs, reading through to the backend.
	var gormDB *gorm.DB
	if cfg.Cache.Driver == "gorm" || cfg.Push.PublicKey != "" {
		gormDB, err = db.Init(&cfg.Database, sugar)
		if err != nil {
			sugar.Errorw("database unavailable, continuing without persistent storage", "error", err)
			gormDB = nil
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewPrometheus(registry)
	if err != nil {
		sugar.Fatalw("failed to register metrics", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cacheStore := store.New(cfg.Cache.Driver, gormDB, store.WithLogger(sugar))
	bus := events.NewBus(events.WithLogger(sugar), events.WithMetrics(recorder))
	client := backend.NewClient(cfg.Backend, sugar)

	manager := cache.NewManager(cacheStore, bus, client.Fetchers(), cache.Settings{
		RoomsStaleAfter:    cfg.Cache.RoomsStaleAfter,
		BookingsStaleAfter: cfg.Cache.BookingsStaleAfter,
		IntervalMinutes:    cfg.Schedule.IntervalMinutes,
		DayStartHour:       cfg.Schedule.DayStartHour,
		DayEndHour:         cfg.Schedule.DayEndHour,
		Location:           loc,
	}, cache.WithLogger(sugar), cache.WithMetrics(recorder))
	defer manager.Close()

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		if gormDB != nil {
			pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, gormDB, webpushOptions, sugar)
			pool.Start(ctx)
			bus.SubscribeAll(pool.Handler())
			sugar.Infow("push notifications enabled", "workers", cfg.WorkerPool.Size)
		}
	} else {
		sugar.Warn("VAPID keys are not configured; push notifications are disabled")
	}

	revalidator := backend.NewService(manager, cfg.Backend.RevalidateInterval, cfg.Cache.WarmupOnStart, sugar)
	go revalidator.Run(ctx)

	handler := api.NewHandler(manager, gormDB, webpushOptions, loc, sugar)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec:  cfg.Server.RateLimitPerSec,
		RateLimitBurst:   cfg.Server.RateLimitBurst,
		ScheduleCacheTTL: time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		Gatherer:         registry,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		sugar.Infow("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("HTTP server ListenAndServe", "error", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	sugar.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("HTTP server Shutdown", "error", err)
	}
	manager.Close()

	sugar.Info("server gracefully stopped")
}
