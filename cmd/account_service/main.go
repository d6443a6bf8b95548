package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banking-ledger-saga/internal/account_service"
	"github.com/banking-ledger-saga/internal/account_service/outbox_poller"
	"github.com/banking-ledger-saga/internal/account_service/service"
	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/data/memory"
	"github.com/banking-ledger-saga/internal/data/postgres"
	"github.com/banking-ledger-saga/internal/discovery"
	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/logger"
	"github.com/banking-ledger-saga/internal/platform/messaging/producers"
	"github.com/banking-ledger-saga/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("account_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Account Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"ledger_driver", cfg.Ledger.Driver,
	)

	var (
		store      account.Store
		postgresDB *persistence.PostgresDB
		producer   *producers.BalanceEventProducer
		poller     *outbox_poller.Poller
	)

	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		// Migrations run as part of pool initialization
		postgresDB, err = persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}

		outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
		store = postgres.NewAccountRepository(log, postgresDB, outboxRepo)

		if cfg.Kafka.Enabled {
			producer, err = producers.NewBalanceEventProducer(appCtx, log, &cfg.Kafka)
			if err != nil {
				log.Error("Failed to initialize balance event producer", "error", err)
				os.Exit(1)
			}
			relay := outbox_poller.NewKafkaEventRelay(outboxRepo, producer, log)
			poller = outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, relay, log)
		}
	default:
		store = memory.NewAccountStore(log)
	}

	verifier, err := identity.NewVerifierFromConfig(log, &cfg.Auth, discovery.NewStaticResolverFromConfig(&cfg.Services))
	if err != nil {
		log.Error("Failed to initialize identity verifier", "error", err)
		os.Exit(1)
	}

	accountService := service.NewAccountService(log, store)
	server := account_service.NewServer(log, cfg, accountService, verifier)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(appCtx)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()
	select {
	case <-wgChan:
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, outbox poller still running")
	}

	if producer != nil {
		if err = producer.Close(); err != nil {
			log.Error("Error closing balance event producer", "error", err)
		}
	}

	if postgresDB != nil {
		postgresDB.Close()
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Account service shutdown completed")
}
