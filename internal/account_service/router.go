package account_service

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/banking-ledger-saga/internal/account_service/handler"
	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/platform/metrics"
	"github.com/banking-ledger-saga/internal/platform/web/middleware"
)

// setupRouter wires the account API. The validate endpoint is open and not
// rate limited, since every transfer reaches it from one caller address;
// balance updates are restricted to callers holding the internal key.
func setupRouter(
	logger *slog.Logger,
	cfg *config.Config,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	verifier identity.Verifier,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(metrics.GinMiddleware())

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	authenticate := middleware.Authenticate(verifier, logger)

	accounts := r.Group("/api/v1/accounts")
	{
		accounts.GET("/validate/:id", accountHandler.Validate)
		accounts.POST("/balance/update", middleware.RequireInternalKey(cfg.Auth.InternalAPIKey), accountHandler.UpdateBalance)

		user := accounts.Group("", authenticate, limiter.Handler())
		{
			user.GET("/list", accountHandler.List)
			user.POST("/create", accountHandler.Create)
			user.GET("/details/:id", accountHandler.Details)
			user.DELETE("/close/:id", accountHandler.Close)
		}

		admin := accounts.Group("", authenticate, middleware.RequireAdmin(), limiter.Handler())
		{
			admin.GET("/all", accountHandler.All)
			admin.PUT("/update/:id", accountHandler.Update)
			admin.GET("/user/:user_id", accountHandler.ByUser)
		}
	}

	r.GET("/health", handler.Health(cfg.Application.Name))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
