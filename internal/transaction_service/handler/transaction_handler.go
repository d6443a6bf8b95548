package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/domain/transaction"
	"github.com/banking-ledger-saga/internal/platform/web/middleware"
	"github.com/banking-ledger-saga/internal/platform/web/response"
	"github.com/banking-ledger-saga/internal/transaction_service/coordinator"
	"github.com/banking-ledger-saga/internal/transaction_service/service"
)

// TransactionHandler handles HTTP requests for money movements and history
type TransactionHandler struct {
	movements coordinator.Service
	queries   service.QueryService
	logger    *slog.Logger
}

func NewTransactionHandler(logger *slog.Logger, movements coordinator.Service, queries service.QueryService) *TransactionHandler {
	return &TransactionHandler{
		movements: movements,
		queries:   queries,
		logger:    logger,
	}
}

// Deposit credits one of the caller's accounts
func (h *TransactionHandler) Deposit(c *gin.Context) {
	req, ok := h.bindMovement(c)
	if !ok {
		return
	}

	txn, err := h.movements.Deposit(c.Request.Context(), middleware.GetPrincipal(c), req)
	h.respondMovement(c, txn, err, "Deposit completed successfully")
}

// Withdraw debits one of the caller's accounts
func (h *TransactionHandler) Withdraw(c *gin.Context) {
	req, ok := h.bindMovement(c)
	if !ok {
		return
	}

	txn, err := h.movements.Withdraw(c.Request.Context(), middleware.GetPrincipal(c), req)
	h.respondMovement(c, txn, err, "Withdrawal completed successfully")
}

// Transfer moves funds from one of the caller's accounts to any active account
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	from, errFrom := uuid.Parse(req.FromAccountID)
	to, errTo := uuid.Parse(req.ToAccountID)
	if errFrom != nil || errTo != nil {
		response.RespondBadRequest(c, "Invalid account ID")
		return
	}

	txn, err := h.movements.Transfer(c.Request.Context(), middleware.GetPrincipal(c), coordinator.TransferRequest{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        req.Amount,
		TransferType:  transaction.TransferType(req.TransferType),
		Description:   req.Description,
	})
	h.respondMovement(c, txn, err, "Transfer completed successfully")
}

// List returns every transaction touching the caller's accounts
func (h *TransactionHandler) List(c *gin.Context) {
	txns, err := h.queries.ListOwn(c.Request.Context(), middleware.GetPrincipal(c))
	h.respondList(c, txns, err)
}

// Recent returns the caller's newest transactions, five unless limit is given
func (h *TransactionHandler) Recent(c *gin.Context) {
	var params RecentParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.RespondBadRequest(c, "Invalid limit")
		return
	}

	txns, err := h.queries.Recent(c.Request.Context(), middleware.GetPrincipal(c), params.Limit)
	h.respondList(c, txns, err)
}

// ByAccount returns the history of one account the caller may read
func (h *TransactionHandler) ByAccount(c *gin.Context) {
	id, ok := h.parseID(c, "Invalid account ID")
	if !ok {
		return
	}

	txns, err := h.queries.ByAccount(c.Request.Context(), middleware.GetPrincipal(c), id)
	h.respondList(c, txns, err)
}

// Details returns one transaction
func (h *TransactionHandler) Details(c *gin.Context) {
	id, ok := h.parseID(c, "Invalid transaction ID")
	if !ok {
		return
	}

	txn, err := h.queries.Details(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, mapTransactionToResponse(txn))
}

// All lists every transaction (admin)
func (h *TransactionHandler) All(c *gin.Context) {
	txns, err := h.queries.ListAll(c.Request.Context())
	h.respondList(c, txns, err)
}

func (h *TransactionHandler) bindMovement(c *gin.Context) (coordinator.MovementRequest, bool) {
	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(c, "Invalid request body: "+err.Error())
		return coordinator.MovementRequest{}, false
	}
	id, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.RespondBadRequest(c, "Invalid account ID")
		return coordinator.MovementRequest{}, false
	}
	return coordinator.MovementRequest{AccountID: id, Amount: req.Amount, Description: req.Description}, true
}

func (h *TransactionHandler) respondMovement(c *gin.Context, txn *transaction.Transaction, err error, message string) {
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondCreated(c, TransactionMessageResponse{Message: message, Transaction: mapTransactionToResponse(txn)})
}

func (h *TransactionHandler) respondList(c *gin.Context, txns []*transaction.Transaction, err error) {
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, mapTransactionsToResponse(txns))
}

func (h *TransactionHandler) parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		response.RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// Health reports liveness
func Health(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	}
}
