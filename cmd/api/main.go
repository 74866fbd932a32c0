package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/pocket-ledger/internal/api/handlers"
	"github.com/dvloznov/pocket-ledger/internal/api/middleware"
	"github.com/dvloznov/pocket-ledger/internal/backup"
	"github.com/dvloznov/pocket-ledger/internal/config"
	"github.com/dvloznov/pocket-ledger/internal/infra/kvstore"
	"github.com/dvloznov/pocket-ledger/internal/infra/repository"
	"github.com/dvloznov/pocket-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/pocket-ledger/internal/logger"
	"github.com/dvloznov/pocket-ledger/internal/transactions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP server port (or set "+config.EnvPort+")")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding the ledger database")
	flag.StringVar(&cfg.DBName, "db", cfg.DBName, "Ledger database name")
	flag.StringVar(&cfg.BackupBucket, "bucket", cfg.BackupBucket, "GCS bucket for snapshots (or set "+config.EnvBackupBucket+")")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console or json")
	origins := flag.String("cors-origins", "", "Comma separated allowed origins (or set "+config.EnvCORSOrigins+"); empty allows all")
	flag.Parse()

	if *origins != "" {
		cfg.CORSOrigins = config.SplitList(*origins)
	}

	if err := cfg.Validate(); err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	format, _ := logger.ParseFormat(cfg.LogFormat)
	log := logger.NewWithOptions(os.Stdout, format, level)

	ctx := logger.WithContext(context.Background(), log)

	db := kvstore.New(cfg.StoreConfig())
	if err := db.Open(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer db.Close()

	log.Info().Str("db", db.Name()).Str("path", db.Path()).Msg("Ledger opened")

	repo := repository.NewTransactionRepository(db)
	svc := transactions.NewService(repo)

	mux := http.NewServeMux()
	handlers.NewTransactionsHandler(svc, log).Register(mux)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var queue *inmemory.Queue
	if cfg.BackupBucket == "" {
		log.Warn().Msg("No backup bucket configured - snapshot endpoints are disabled")
	} else {
		objects, err := backup.NewGCSStore(ctx, cfg.BackupBucket, cfg.BackupEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create snapshot store")
		}
		defer objects.Close()

		backups := backup.NewService(objects, repo, repo, db.Name())
		jobStore := inmemory.NewStore()

		// One worker: a restore must not interleave with a backup.
		queue = inmemory.NewQueue(16, 1, jobStore)
		if err := queue.Start(workerCtx, backups.HandleJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to start snapshot worker")
		}

		handlers.NewBackupsHandler(backups, queue, jobStore, log).Register(mux)
		log.Info().Str("bucket", cfg.BackupBucket).Msg("Snapshot endpoints enabled")
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if v, err := db.Version(r.Context()); err == nil {
			status["db_version"] = v
		} else {
			status["status"] = "degraded"
		}
		middleware.WriteJSON(w, http.StatusOK, status)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Chain(mux, log, cfg.CORSOrigins...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if queue != nil {
		if err := queue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping snapshot queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
