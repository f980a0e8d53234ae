package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"inorbit/internal/backend"
	"inorbit/internal/cache"
	"inorbit/internal/cli"
	apphttp "inorbit/internal/http"
	"inorbit/internal/locale"
	"inorbit/internal/log"
	"inorbit/internal/middleware/ratelimit"
	"inorbit/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	f, err := locale.Load(cfg.Timezone)
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	qc := cache.NewQueryCache(cfg.CacheMaxEntries, cfg.CacheTTL, logger.WithComponent(log.ComponentCache).Logger)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	cacheManager.Register(qc)
	cacheManager.StartCleanup(cfg.CacheTTL)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// A reloaded seed file changes every view.
	bcfg.OnReload = func() {
		qc.Invalidate(context.Background(), qc.Partitions()...)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(watchCtx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	goals := services.NewGoalService(res.Store, res.Publisher, services.Invalidators{qc, apphttp.ClientInvalidator()}, f)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Queries:   services.NewQueries(res.Store, qc, f),
		Goals:     goals,
		Cache:     qc,
		Backend:   res.Store,
		Logger:    logger,
		RateLimit: ratelimit.DefaultConfig(),
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		stopWatch()
		cacheManager.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting inorbit server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		"events", res.Publisher != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
