package transaction_service

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/platform/metrics"
	"github.com/banking-ledger-saga/internal/platform/web/middleware"
	"github.com/banking-ledger-saga/internal/transaction_service/handler"
)

// setupRouter wires the transaction API. Every route except health and
// metrics requires a verified principal.
func setupRouter(
	logger *slog.Logger,
	cfg *config.Config,
	r *gin.Engine,
	transactionHandler *handler.TransactionHandler,
	verifier identity.Verifier,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(metrics.GinMiddleware())

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)

	transactions := r.Group("/api/v1/transactions", middleware.Authenticate(verifier, logger), limiter.Handler())
	{
		transactions.POST("/deposit", transactionHandler.Deposit)
		transactions.POST("/withdraw", transactionHandler.Withdraw)
		transactions.POST("/transfer", transactionHandler.Transfer)

		transactions.GET("/list", transactionHandler.List)
		transactions.GET("/recent", transactionHandler.Recent)
		transactions.GET("/account/:id", transactionHandler.ByAccount)
		transactions.GET("/details/:id", transactionHandler.Details)
		transactions.GET("/all", middleware.RequireAdmin(), transactionHandler.All)
	}

	r.GET("/health", handler.Health(cfg.Application.Name))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
