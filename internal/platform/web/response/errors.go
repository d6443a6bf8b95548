package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/domain/transaction"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/platform/web/middleware"
)

// Status returns the HTTP status and error code for err
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, account.ErrAccountNotFound{}):
		return http.StatusNotFound, CodeAccountNotFound
	case errors.Is(err, transaction.ErrTransactionNotFound{}):
		return http.StatusNotFound, CodeTransactionNotFound
	case errors.Is(err, account.ErrInactiveAccount{}):
		return http.StatusBadRequest, CodeAccountInactive
	case errors.Is(err, account.ErrAlreadyClosed{}):
		return http.StatusBadRequest, CodeAlreadyClosed
	case errors.Is(err, account.ErrNonZeroBalance{}):
		return http.StatusBadRequest, CodeNonZeroBalance
	case errors.Is(err, account.ErrInsufficientFunds{}):
		return http.StatusBadRequest, CodeInsufficientFunds
	case errors.Is(err, shared.ErrInvalidRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, shared.ErrAccessDenied):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, CodeUpstreamUnavailable
	case errors.Is(err, shared.ErrPartialFailure):
		return http.StatusInternalServerError, CodePartialFailure
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// RespondWithDomainError maps err onto the error taxonomy. Unclassified
// errors are logged and reported without detail.
func RespondWithDomainError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := Status(err)

	switch code {
	case CodeInternal:
		logger.Error("Unhandled error", "error", err, "path", c.FullPath(), "correlation_id", middleware.GetCorrelationID(c))
		RespondInternalError(c)
		return
	case CodePartialFailure, CodeUpstreamUnavailable:
		logger.Error("Request failed", "code", code, "error", err, "correlation_id", middleware.GetCorrelationID(c))
	}

	RespondWithError(c, status, code, err.Error())
}
