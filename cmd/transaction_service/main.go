package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/data/memory"
	"github.com/banking-ledger-saga/internal/data/mongo"
	"github.com/banking-ledger-saga/internal/discovery"
	"github.com/banking-ledger-saga/internal/domain/transaction"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/logger"
	"github.com/banking-ledger-saga/internal/platform/messaging/producers"
	"github.com/banking-ledger-saga/internal/platform/persistence"
	"github.com/banking-ledger-saga/internal/transaction_service"
	"github.com/banking-ledger-saga/internal/transaction_service/accountclient"
	"github.com/banking-ledger-saga/internal/transaction_service/coordinator"
	"github.com/banking-ledger-saga/internal/transaction_service/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("transaction_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Transaction Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"transaction_log_driver", cfg.TransactionLog.Driver,
	)

	var (
		txLog   transaction.Log
		mongoDB *persistence.MongoDB
	)

	switch cfg.TransactionLog.Driver {
	case config.DriverMongo:
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		repo := mongo.NewTransactionRepository(log, mongoDB.Database())
		if err := repo.EnsureIndexes(appCtx); err != nil {
			log.Error("Failed to create transaction indexes", "error", err)
			os.Exit(1)
		}
		txLog = repo
	default:
		txLog = memory.NewTransactionLog(log)
	}

	// Alerts stay a nil interface when Kafka is off; the coordinator then only logs
	var (
		alerts        producers.AlertPublisher
		alertProducer *producers.AlertProducer
	)
	if cfg.Kafka.Enabled {
		alertProducer, err = producers.NewAlertProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize alert producer", "error", err)
			os.Exit(1)
		}
		alerts = alertProducer
	}

	resolver := discovery.NewStaticResolverFromConfig(&cfg.Services)

	verifier, err := identity.NewVerifierFromConfig(log, &cfg.Auth, resolver)
	if err != nil {
		log.Error("Failed to initialize identity verifier", "error", err)
		os.Exit(1)
	}

	accounts := accountclient.New(log, resolver, cfg)
	movements := coordinator.NewService(log, cfg, accounts, txLog, alerts)
	queries := service.NewQueryService(log, accounts, txLog)

	server := transaction_service.NewServer(log, cfg, movements, queries, verifier)

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

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

	// Stop accepting requests before draining in-flight movements
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if pooled, ok := movements.(*coordinator.PooledService); ok {
		log.Info("Shutting down worker pool", "running_workers", pooled.Running())
		pooled.Shutdown()
	}

	if alertProducer != nil {
		if err = alertProducer.Close(); err != nil {
			log.Error("Error closing alert producer", "error", err)
		}
	}

	if mongoDB != nil {
		if err = mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Transaction service shutdown completed")
}
