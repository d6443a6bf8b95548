// Package response writes the JSON envelope shared by both services:
// {"data": ..., "error": {"code", "message"}, "correlation_id": ...}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/banking-ledger-saga/internal/platform/web/middleware"
)

// Error codes
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"
	CodeAlreadyClosed       = "ACCOUNT_ALREADY_CLOSED"
	CodeNonZeroBalance      = "NON_ZERO_BALANCE"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodePartialFailure      = "PARTIAL_FAILURE"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_SERVER_ERROR"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &Response{
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, CodeBadRequest, message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, CodeNotFound, message)
}

// RespondInternalError sends a 500 without leaking the underlying error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, CodeInternal, "An internal server error occurred")
}
