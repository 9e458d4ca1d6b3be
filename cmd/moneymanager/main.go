package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moneymanager/internal/cache"
	"moneymanager/internal/cli"
	"moneymanager/internal/config"
	apphttp "moneymanager/internal/http"
	"moneymanager/internal/log"
	"moneymanager/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	ledger := services.NewLedgerService(res.Store, services.Options{
		StoreTimeout:  cfg.StoreTimeout,
		StatsCacheTTL: cfg.StatsCacheTTL,
		Publisher:     res.Publisher,
		Logger:        logger,
	})

	caches := cache.NewManager()
	if sc := ledger.StatsCache(); sc != nil {
		caches.Register(sc)
		caches.StartCleanup(5 * time.Minute)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Caches:             caches,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting Money Manager API",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"events", res.Publisher != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
