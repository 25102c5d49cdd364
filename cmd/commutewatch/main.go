package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/commutewatch-data/internal/alerting"
	"github.com/commutewatch-data/internal/common/config"
	"github.com/commutewatch-data/internal/common/db"
	"github.com/commutewatch-data/internal/common/logger"
	"github.com/commutewatch-data/internal/common/maintenance"
	"github.com/commutewatch-data/internal/common/webhook"
	"github.com/commutewatch-data/internal/refdata"
	"github.com/commutewatch-data/internal/routeindex"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		panic("Failed to load .env file: " + err.Error())
	}

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(
		logger.ParseLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
		logger.FileWriter(cfg.Logging.FilePath),
	)

	log.Info("Commutewatch service starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"refdata_source", cfg.ReferenceData.Source,
		"cycle_interval", cfg.Monitor.CycleInterval,
	)

	if err := cfg.Database.Validate(); err != nil {
		log.Fatal("Invalid database configuration", "error", err)
	}
	if err := cfg.ReferenceData.Validate(); err != nil {
		log.Fatal("Invalid reference data configuration", "error", err)
	}

	database, err := db.New(cfg.Database.ConnectionString(), log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	var ref refdata.Provider
	switch cfg.ReferenceData.Source {
	case "file":
		ref, err = refdata.LoadFile(cfg.ReferenceData.FilePath)
		if err != nil {
			log.Fatal("Failed to load network file", "error", err)
		}
	default:
		ref = refdata.NewStore(database)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	builder := routeindex.NewBuilder(database, ref, log)

	if cfg.Monitor.RebuildOnStartup {
		log.Info("Rebuilding all route indexes on startup")
		result, err := builder.RebuildAll(ctx)
		if err != nil {
			log.Error("Startup rebuild failed", "error", err)
		} else {
			log.Info("Startup rebuild completed",
				"routes_processed", result.RoutesProcessed,
				"routes_failed", result.RoutesFailed,
				"entries_created", result.EntriesCreated)
		}
	}

	var wg sync.WaitGroup

	// Start the disruption monitor
	fetcher := alerting.NewHTTPFetcher(cfg.Feed, log)
	dispatcher := webhook.NewClient(cfg.Webhook.URL)
	monitor := alerting.NewMonitor(
		cfg.Monitor,
		alerting.NewStore(database),
		builder.Store(),
		fetcher,
		dispatcher,
		log,
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitor.Start(ctx); err != nil {
			log.Error("Disruption monitor error", "error", err)
		}
	}()

	// Start index maintenance
	maint := maintenance.New(database, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		maint.Run(ctx, 24*time.Hour, 30)
	}()

	<-sigChan
	log.Info("Shutdown signal received")

	cancel()
	wg.Wait()

	log.Info("Commutewatch service stopped")
}
