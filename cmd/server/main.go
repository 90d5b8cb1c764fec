// Package main is the entry point for the papertrade brokerage server.
// It wires the databases, repositories and services, starts the HTTP API and
// the background maintenance jobs, and shuts everything down gracefully.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/papertrade/internal/clientdata"
	"github.com/aristath/papertrade/internal/clients/marketdata"
	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/modules/accounts"
	accountshandlers "github.com/aristath/papertrade/internal/modules/accounts/handlers"
	"github.com/aristath/papertrade/internal/modules/ledger"
	ledgerhandlers "github.com/aristath/papertrade/internal/modules/ledger/handlers"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/papertrade/internal/modules/portfolio/handlers"
	"github.com/aristath/papertrade/internal/reliability"
	"github.com/aristath/papertrade/internal/server"
	"github.com/aristath/papertrade/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting papertrade")

	// Databases: broker.db carries the accounts, holdings and trade log and
	// gets the maximum-safety profile; cache.db is ephemeral.
	brokerDB, err := database.New(database.Config{
		Path:    cfg.BrokerDBPath(),
		Profile: database.ProfileLedger,
		Name:    "broker",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open broker database")
	}
	defer brokerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{brokerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Repositories
	accountRepo := accounts.NewRepository(brokerDB.Conn(), log)
	holdingRepo := portfolio.NewHoldingRepository(brokerDB.Conn(), log)
	tradeRepo := ledger.NewTradeRepository(brokerDB.Conn(), log)
	cacheRepo := clientdata.NewRepository(cacheDB.Conn(), log)

	// Quote source
	quoteClient := marketdata.NewClient(cfg.QuoteAPIBaseURL, cfg.QuoteAPIKey, cacheRepo, log)

	// Services
	accountService := accounts.NewService(accountRepo, cfg.JWTSecret, cfg.StartingCash, log)
	portfolioService := portfolio.NewService(holdingRepo, accountRepo, quoteClient, log)
	ledgerService := ledger.NewService(brokerDB, accountRepo, holdingRepo, tradeRepo, quoteClient, log)

	// Background jobs: hourly maintenance, nightly backup (if configured)
	scheduler := reliability.NewScheduler(log)
	maintenanceJob := reliability.NewMaintenanceJob(brokerDB, cacheDB, cacheRepo, log)
	if err := scheduler.AddJob("@hourly", maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	if cfg.Backup.Enabled {
		backupJob := reliability.NewBackupJob(cfg.Backup, brokerDB, log)
		if err := scheduler.AddJob("0 3 * * *", backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:               log,
		Config:            cfg,
		BrokerDB:          brokerDB,
		CacheDB:           cacheDB,
		AccountService:    accountService,
		AccountHandlers:   accountshandlers.NewHandler(accountService, log),
		PortfolioHandlers: portfoliohandlers.NewHandler(portfolioService, quoteClient, log),
		LedgerHandlers:    ledgerhandlers.NewHandler(ledgerService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Final checkpoint so the WAL is folded into the main files before exit
	for _, db := range []*database.DB{brokerDB, cacheDB} {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Error().Err(err).Str("database", db.Name()).Msg("Final WAL checkpoint failed")
		}
	}

	log.Info().Msg("Server stopped")
}
