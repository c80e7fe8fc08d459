package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gestorfin/backend/internal/api/handlers"
	"github.com/gestorfin/backend/internal/api/middleware"
	"github.com/gestorfin/backend/internal/config"
	"github.com/gestorfin/backend/internal/gcsarchive"
	infraBQ "github.com/gestorfin/backend/internal/infra/bigquery"
	"github.com/gestorfin/backend/internal/jobs"
	jobsmem "github.com/gestorfin/backend/internal/jobs/inmemory"
	"github.com/gestorfin/backend/internal/logger"
	"github.com/gestorfin/backend/internal/openfinance"
	"github.com/gestorfin/backend/internal/store"
	storemem "github.com/gestorfin/backend/internal/store/inmemory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := context.Background()

	// Record store: BigQuery in production, in-memory when no project is
	// configured (local development).
	var recordStore store.Store
	if cfg.GCPProject != "" {
		bqStore, err := infraBQ.NewStore(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bqStore.Close()
		recordStore = bqStore
		log.Info().Str("project", cfg.GCPProject).Str("dataset", cfg.BQDataset).Msg("Using BigQuery record store")
	} else {
		recordStore = storemem.NewStore()
		log.Warn().Msg("No GCP project configured, using in-memory record store")
	}

	// Provider selection happens once at startup; the orchestrator only ever
	// sees the interface.
	var provider openfinance.Provider
	switch cfg.Provider {
	case config.ProviderReal:
		client, err := openfinance.NewClient(cfg.OpenFinanceConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Open Finance client")
		}
		provider = client
	default:
		provider = &openfinance.SimulatedProvider{}
	}
	log.Info().Str("provider", provider.Name()).Msg("Open Finance provider selected")

	consents := openfinance.NewConsentManager(recordStore)
	syncer := openfinance.NewSyncer(provider, consents, recordStore)

	// Webhook audit archiving: payloads go through the job queue to a GCS
	// bucket when one is configured.
	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	var publisher jobs.Publisher
	if cfg.AuditBucket != "" {
		archiver, err := gcsarchive.NewArchiver(ctx, cfg.AuditBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create webhook archiver")
		}
		defer archiver.Close()

		go func() {
			log.Info().Str("bucket", cfg.AuditBucket).Msg("Starting webhook archive worker")
			if err := jobQueue.Start(workerCtx, archiver.Handler()); err != nil {
				log.Error().Err(err).Msg("Archive worker stopped with error")
			}
		}()
		publisher = jobQueue
	} else {
		log.Warn().Msg("No audit bucket configured, webhook archiving disabled")
	}

	transactionsHandler := handlers.NewTransactionsHandler(recordStore, log)
	installmentsHandler := handlers.NewInstallmentsHandler(recordStore, log)
	investmentsHandler := handlers.NewInvestmentsHandler(recordStore, log)
	summaryHandler := handlers.NewSummaryHandler(recordStore, recordStore, log)
	openFinanceHandler := handlers.NewOpenFinanceHandler(consents, syncer, log)
	webhooksHandler := handlers.NewWebhooksHandler(consents, publisher, cfg.WebhookSecret, log)
	importHandler := handlers.NewImportHandler(recordStore, log)
	tipsHandler := handlers.NewTipsHandler()

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Get("/investments/tips", tipsHandler.List)
		r.Post("/webhooks/openfinance", webhooksHandler.Receive)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Route("/transactions", transactionsHandler.Routes)
			r.Route("/installments", installmentsHandler.Routes)
			r.Route("/investments", investmentsHandler.Routes)
			r.Route("/openfinance", openFinanceHandler.Routes)
			r.Get("/summary", summaryHandler.Summary)
			r.Post("/import", importHandler.Import)
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(r),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Drain in-flight archive jobs before exit.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
