package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dealwatch/internal/config"
	"dealwatch/internal/marketplace"
	"dealwatch/internal/notify"
	"dealwatch/internal/observability"
	"dealwatch/internal/rules"
	"dealwatch/internal/storage"
	"dealwatch/internal/storage/memory"
	"dealwatch/internal/storage/migrations"
	pgstore "dealwatch/internal/storage/postgres"
	"dealwatch/internal/watch"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON configuration file")
	interval := flag.Duration("interval", 0, "Poll interval override (0 uses the config value)")
	once := flag.Bool("once", false, "Run a single cycle and exit")
	useMemory := flag.Bool("use-memory", false, "Use in-memory seen store instead of PostgreSQL")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides POSTGRES_DSN)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	pruneOlderThan := flag.Duration("prune-older-than", 0, "Prune seen records older than this before starting (0 disables)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Invalid rule definitions stop the process before any polling begins.
	ruleSet, err := rules.NewRuleSet(cfg.Rules)
	if err != nil {
		logger.Fatalf("Failed to validate rules: %v", err)
	}
	logger.Printf("Loaded %d keyword rules", ruleSet.Len())

	if cfg.WebhookURL == "" {
		logger.Fatal("WEBHOOK_URL must be set")
	}

	pollInterval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if *interval > 0 {
		pollInterval = *interval
	}

	// Start metrics server if enabled
	metrics := observability.NewMetrics("dealwatch")
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	// Seen store: durable postgres by default, memory on request
	seen, cleanup := buildSeenStore(ctx, logger, cfg.PostgresDSN, *postgresDSN, *useMemory)
	defer cleanup()

	if *pruneOlderThan > 0 {
		cutoff := time.Now().Add(-*pruneOlderThan).Unix()
		deleted, err := seen.PruneBefore(ctx, cutoff)
		if err != nil {
			logger.Printf("Prune failed: %v", err)
		} else {
			logger.Printf("Pruned %d seen records older than %v", deleted, *pruneOlderThan)
		}
	}

	searcher := marketplace.NewBrowseClient(
		cfg.SearchURL,
		cfg.TokenURL,
		cfg.MarketClientID,
		cfg.MarketClientSecret,
		marketplace.WithMarketplaceID(cfg.MarketplaceID),
		marketplace.WithLimit(searchLimit(cfg.SearchLimit)),
		marketplace.WithLogger(logger),
	)

	notifier := notify.NewWebhookClient(
		cfg.WebhookURL,
		notify.WithUsername(webhookUsername(cfg.WebhookUsername)),
		notify.WithMentionRole(cfg.MentionRole),
		notify.WithLogger(logger),
	)

	cycle := watch.New(watch.Options{
		Rules:           ruleSet,
		Searcher:        searcher,
		Notifier:        notifier,
		Seen:            seen,
		GlobalBlocklist: rules.NewBlocklist(cfg.GlobalBlocklist),
		SellerBlocklist: rules.NewBlocklist(cfg.SellerBlocklist),
		Metrics:         metrics,
		Logger:          logger,
		Debug:           cfg.Debug,
	})

	if *once {
		if _, err := cycle.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("Cycle failed: %v", err)
		}
		close(done)
		return
	}

	runner := watch.NewRunner(cycle, pollInterval, logger)
	err = runner.Run(ctx)
	close(done)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Runner failed: %v", err)
	}
	logger.Println("Shutdown complete")
}

// buildSeenStore wires the dedup ledger. The returned cleanup is always
// safe to call.
func buildSeenStore(ctx context.Context, logger *log.Logger, cfgDSN, flagDSN string, useMemory bool) (storage.SeenStore, func()) {
	if useMemory {
		logger.Println("Using in-memory seen store (ledger lost on exit)")
		return memory.NewSeenStore(), func() {}
	}

	dsn := cfgDSN
	if flagDSN != "" {
		dsn = flagDSN
	}
	if dsn == "" {
		logger.Fatal("PostgreSQL DSN required: set POSTGRES_DSN or pass --postgres-dsn (or --use-memory)")
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Println("Using PostgreSQL seen store")

	return pgstore.NewSeenStore(pool), pool.Close
}

func searchLimit(configured int) int {
	if configured > 0 {
		return configured
	}
	return marketplace.DefaultLimit
}

func webhookUsername(configured string) string {
	if configured != "" {
		return configured
	}
	return "dealwatch alerts"
}
