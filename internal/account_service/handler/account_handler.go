package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/account_service/service"
	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/platform/web/middleware"
	"github.com/banking-ledger-saga/internal/platform/web/response"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// List returns the caller's own accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountService.ListOwn(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, mapAccountsToResponse(accounts))
}

// Create opens an account for the caller
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.Create(c.Request.Context(), middleware.GetPrincipal(c), account.Type(req.AccountType), req.InitialDeposit)
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondCreated(c, AccountMessageResponse{Message: "Account created successfully", Account: mapAccountToResponse(acc)})
}

// Details returns one account if the caller owns it or is an admin
func (h *AccountHandler) Details(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	acc, err := h.accountService.Details(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, mapAccountToResponse(acc))
}

// Close closes an empty account owned by the caller
func (h *AccountHandler) Close(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	acc, err := h.accountService.Close(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, AccountMessageResponse{Message: "Account closed successfully", Account: mapAccountToResponse(acc)})
}

// All lists every account (admin)
func (h *AccountHandler) All(c *gin.Context) {
	accounts, err := h.accountService.ListAll(c.Request.Context())
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, mapAccountsToResponse(accounts))
}

// ByUser lists the accounts of any user (admin)
func (h *AccountHandler) ByUser(c *gin.Context) {
	accounts, err := h.accountService.ListByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, mapAccountsToResponse(accounts))
}

// Update changes account type and/or status (admin)
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var update account.FieldUpdate
	if req.AccountType != nil {
		t := account.Type(*req.AccountType)
		update.Type = &t
	}
	if req.Status != nil {
		s := account.Status(*req.Status)
		update.Status = &s
	}

	acc, err := h.accountService.Update(c.Request.Context(), id, update)
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, AccountMessageResponse{Message: "Account updated successfully", Account: mapAccountToResponse(acc)})
}

// UpdateBalance applies one credit or debit on behalf of the transaction service
func (h *AccountHandler) UpdateBalance(c *gin.Context) {
	var req BalanceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	id, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.UpdateBalance(c.Request.Context(), id, req.Amount, account.Operation(req.Operation))
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}
	response.RespondOK(c, AccountMessageResponse{Message: "Balance updated successfully", Account: mapAccountToResponse(acc)})
}

// Validate always answers 200; a malformed id is reported as not found
func (h *AccountHandler) Validate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondOK(c, ValidationResponse{Valid: false, Message: "Account not found"})
		return
	}

	v, err := h.accountService.Validate(c.Request.Context(), id)
	if err != nil {
		response.RespondWithDomainError(c, h.logger, err)
		return
	}

	out := ValidationResponse{Valid: v.Valid, Message: v.Message}
	if v.Account != nil {
		out.Account = mapValidatedAccount(v.Account)
	}
	response.RespondOK(c, out)
}

func (h *AccountHandler) parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Debug("Invalid account ID", "id", raw, "error", err)
		response.RespondBadRequest(c, "Invalid account ID")
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
