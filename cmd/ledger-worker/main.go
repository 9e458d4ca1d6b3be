package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneymanager/internal/amqp"
	"moneymanager/internal/cli"
	"moneymanager/internal/config"
	"moneymanager/internal/log"
	"moneymanager/internal/sheets"
	gsheet "moneymanager/internal/sheets/google"
	mem "moneymanager/internal/sheets/memory"
	"moneymanager/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentWorker)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	logger.Info("Starting ledger-worker")

	mirror, err := openMirror(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize sheet mirror", log.FieldError, err)
		os.Exit(1)
	}

	// The worker only reads the store; events are consumed, not published.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	res, err := cli.OpenBackend(ctx, logger, &storeCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	// An in-process memory store is not the API's ledger, so reconciling
	// against it would wipe the mirror.
	var source worker.Source
	if cfg.DataBackend != "memory" {
		source = res.Store
	}
	syncWorker := worker.NewSyncWorker(mirror, source, logger)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := client.ConsumeEvents(gctx, syncWorker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if source != nil && cfg.ReconcileInterval > 0 {
		reconciler := worker.NewReconciler(syncWorker, worker.ReconcilerConfig{Interval: cfg.ReconcileInterval})
		g.Go(func() error {
			if err := reconciler.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return reconciler.Stop(stopCtx)
		})
	} else {
		logger.Info("Periodic reconcile disabled", log.FieldBackend, cfg.DataBackend, "interval", cfg.ReconcileInterval)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func openMirror(ctx context.Context, logger *log.Logger, cfg *config.Config) (sheets.Mirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets mirror initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}
