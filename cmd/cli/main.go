package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestorfin/backend/internal/config"
	infraBQ "github.com/gestorfin/backend/internal/infra/bigquery"
	"github.com/gestorfin/backend/internal/logger"
	"github.com/gestorfin/backend/internal/openfinance"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "transactions":
		runTransactions(log)
	case "consents":
		runConsents(log)
	case "revoke":
		runRevoke(log)
	case "sync":
		runSync(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("GestorFin Admin CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  transactions  List a user's live transactions")
	fmt.Println("  consents      List a user's Open Finance consents")
	fmt.Println("  revoke        Revoke a consent by token")
	fmt.Println("  sync          Run an Open Finance sync for a user")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// openStore connects to the configured BigQuery record store. The CLI is an
// ops tool for real deployments; there is no in-memory fallback here.
func openStore(ctx context.Context, log zerolog.Logger) (*config.Config, *infraBQ.Store) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}
	if cfg.GCPProject == "" {
		log.Fatal().Msg("GCP_PROJECT must be set")
	}

	st, err := infraBQ.NewStore(ctx, cfg.GCPProject, cfg.BQDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	return cfg, st
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	_, st := openStore(ctx, log)
	defer st.Close()

	txs, err := st.ListTransactions(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(txs))
	for i, tx := range txs {
		fmt.Printf("\n%d. %s\n", i+1, tx.Description)
		fmt.Printf("   ID:     %s\n", tx.ID)
		fmt.Printf("   Date:   %s\n", tx.Date.Format("2006-01-02"))
		fmt.Printf("   Amount: %.2f (%s)\n", tx.Amount, tx.Kind)
	}
	fmt.Println()
}

func runConsents(log zerolog.Logger) {
	fs := flag.NewFlagSet("consents", flag.ExitOnError)
	userID := fs.String("user", "", "User ID")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	_, st := openStore(ctx, log)
	defer st.Close()

	consents, err := st.ListConsents(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list consents")
	}

	fmt.Printf("\n=== Consents (%d) ===\n", len(consents))
	for i, c := range consents {
		fmt.Printf("\n%d. %s\n", i+1, c.Token)
		fmt.Printf("   ID:       %s\n", c.ID)
		fmt.Printf("   Provider: %s\n", c.Provider)
		fmt.Printf("   Scopes:   %s\n", c.Scopes)
		fmt.Printf("   Status:   %s\n", c.Status)
		fmt.Printf("   Created:  %s\n", c.CreatedAt.Format(time.RFC3339))
	}
	fmt.Println()
}

func runRevoke(log zerolog.Logger) {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	token := fs.String("token", "", "Consent token to revoke")
	fs.Parse(os.Args[2:])

	if *token == "" {
		log.Fatal().Msg("Error: --token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	_, st := openStore(ctx, log)
	defer st.Close()

	consents := openfinance.NewConsentManager(st)
	consent, err := consents.ApplyLifecycleEvent(ctx, *token, openfinance.EventRevoked)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to revoke consent")
	}

	fmt.Printf("Consent %s is now %s\n", consent.ID, consent.Status)
}

func runSync(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	userID := fs.String("user", "", "User ID to sync")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cfg, st := openStore(ctx, log)
	defer st.Close()

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

	consents := openfinance.NewConsentManager(st)
	syncer := openfinance.NewSyncer(provider, consents, st)

	log.Info().Str("user_id", *userID).Str("provider", provider.Name()).Msg("Starting sync")

	result, err := syncer.Sync(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Synced from %s: %d imported, %d skipped as duplicates\n",
		result.Source, len(result.Imported), result.Skipped)
}
