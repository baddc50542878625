package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/engine"
	"github.com/l1jgo/simcore/internal/persist"
	"github.com/l1jgo/simcore/internal/room"
	"github.com/l1jgo/simcore/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("SIMCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting simcore",
		zap.String("bind_address", cfg.Room.BindAddress),
		zap.Bool("use_worker", cfg.Engine.UseWorker),
	)

	// Database connection is optional: a process can run rooms purely
	// in-memory (spec.md §4.4 Snapshot/Restore round-trips through the
	// Chronicle alone). Persistence of snapshots/transactions only
	// activates when a DSN is configured.
	var txRepo *persist.TransactionRepo
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		migCtx, migCancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = persist.RunMigrations(migCtx, db.Pool)
		migCancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("database connected and migrated")

		// The SnapshotRepo is constructed and discarded: nothing in this
		// process saves or loads Chronicle snapshots.
		_ = persist.NewSnapshotRepo(db)
		txRepo = persist.NewTransactionRepo(db)
	} else {
		log.Warn("no database DSN configured; snapshots and transaction log are in-memory only")
	}

	newRoomEngine := func() *engine.Engine {
		return engine.New(engine.Config{
			AutoConnect: cfg.Engine.AutoConnect,
			UseWorker:   cfg.Engine.UseWorker,
			ScriptsDir:  cfg.Engine.ScriptsDir,
			WorkerOptions: worker.Options{
				Enabled: cfg.Engine.UseWorker,
				Timeout: cfg.Worker.Timeout,
				Size:    int64(cfg.Worker.PoolSize),
			},
		}, log)
	}

	srv := room.NewServer(newRoomEngine, room.DefaultHooks{}, cfg.Room.MaxRooms, log)

	mux := http.NewServeMux()
	mux.Handle("/ws", srv)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:    cfg.Room.BindAddress,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Room.BindAddress))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// When a database is configured, every 5s the ticker marks unprocessed
	// transaction_log rows as processed. This process does not append the
	// engines' transactions to that table, and the Room layer does not take
	// Chronicle snapshots.
	var flushTicker *time.Ticker
	if txRepo != nil {
		flushTicker = time.NewTicker(5 * time.Second)
		defer flushTicker.Stop()
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	tickerC := func() <-chan time.Time {
		if flushTicker == nil {
			return nil
		}
		return flushTicker.C
	}()

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case <-tickerC:
			if err := txRepo.MarkProcessed(context.Background()); err != nil {
				log.Warn("transaction flush failed", zap.Error(err))
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				log.Warn("http shutdown error", zap.Error(err))
			}
			log.Info("stopped")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
