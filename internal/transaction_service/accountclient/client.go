// Package accountclient calls the account service over HTTP and translates
// its error envelope back into domain errors.
package accountclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/discovery"
	"github.com/banking-ledger-saga/internal/domain/account"
	"github.com/banking-ledger-saga/internal/domain/money"
	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/identity"
	"github.com/banking-ledger-saga/internal/logger"
)

const (
	basePath = "/api/v1/accounts"

	correlationIDHeader = "X-Correlation-ID"
	internalKeyHeader   = "X-Internal-Key"
)

// Client is the transaction service's view of the account service
type Client struct {
	resolver    discovery.Resolver
	http        *http.Client
	internalKey string
	logger      *slog.Logger
}

// New builds a client. A zero timeout leaves calls bounded only by the caller's context.
func New(logger *slog.Logger, resolver discovery.Resolver, cfg *config.Config) *Client {
	return &Client{
		resolver:    resolver,
		http:        &http.Client{Timeout: cfg.AccountClient.Timeout},
		internalKey: cfg.Auth.InternalAPIKey,
		logger:      logger,
	}
}

// Details fetches an account the principal is allowed to see
func (c *Client) Details(ctx context.Context, p *identity.Principal, id uuid.UUID) (*account.Account, error) {
	var payload accountPayload
	if err := c.do(ctx, http.MethodGet, basePath+"/details/"+id.String(), p, nil, &payload, id); err != nil {
		return nil, err
	}
	return payload.toDomain()
}

// ListOwn returns the accounts owned by the principal
func (c *Client) ListOwn(ctx context.Context, p *identity.Principal) ([]*account.Account, error) {
	var payload struct {
		Accounts []accountPayload `json:"accounts"`
	}
	if err := c.do(ctx, http.MethodGet, basePath+"/list", p, nil, &payload, uuid.Nil); err != nil {
		return nil, err
	}

	accounts := make([]*account.Account, 0, len(payload.Accounts))
	for _, item := range payload.Accounts {
		acc, err := item.toDomain()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// Validate asks whether an account exists and is active. It needs no principal.
func (c *Client) Validate(ctx context.Context, id uuid.UUID) (*account.Validation, error) {
	var payload struct {
		Valid   bool            `json:"valid"`
		Message string          `json:"message"`
		Account *accountPayload `json:"account"`
	}
	if err := c.do(ctx, http.MethodGet, basePath+"/validate/"+id.String(), nil, nil, &payload, id); err != nil {
		return nil, err
	}

	result := &account.Validation{Valid: payload.Valid, Message: payload.Message}
	if payload.Account != nil {
		acc, err := payload.Account.toDomain()
		if err != nil {
			return nil, err
		}
		result.Account = acc
	}
	return result, nil
}

// UpdateBalance applies one ledger leg through the internal endpoint
func (c *Client) UpdateBalance(ctx context.Context, id uuid.UUID, amount money.Amount, op account.Operation) (*account.Account, error) {
	body := balanceUpdateRequest{AccountID: id.String(), Amount: amount, Operation: string(op)}

	var payload accountPayload
	if err := c.do(ctx, http.MethodPost, basePath+"/balance/update", nil, body, &payload, id); err != nil {
		return nil, err
	}
	return payload.toDomain()
}

type balanceUpdateRequest struct {
	AccountID string       `json:"account_id"`
	Amount    money.Amount `json:"amount"`
	Operation string       `json:"operation"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type accountPayload struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	AccountNumber string       `json:"account_number"`
	AccountType   string       `json:"account_type"`
	Balance       money.Amount `json:"balance"`
	Status        string       `json:"status"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
}

func (p accountPayload) toDomain() (*account.Account, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed account id %q", shared.ErrUpstreamUnavailable, p.ID)
	}

	acc := &account.Account{
		ID:            id,
		OwnerID:       p.UserID,
		AccountNumber: p.AccountNumber,
		Type:          account.Type(p.AccountType),
		Balance:       p.Balance,
		Status:        account.Status(p.Status),
	}
	// timestamps are informational here
	acc.CreatedAt, _ = time.Parse(time.RFC3339, p.CreatedAt)
	acc.UpdatedAt, _ = time.Parse(time.RFC3339, p.UpdatedAt)
	return acc, nil
}

// do performs one call and decodes the data member of the envelope into out.
// subject is the account the call is about, used to build typed errors.
func (c *Client) do(ctx context.Context, method, path string, p *identity.Principal, body, out interface{}, subject uuid.UUID) error {
	baseURL, err := c.resolver.Resolve(ctx, discovery.AccountService)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil && p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}
	if id := logger.CorrelationID(ctx); id != "" {
		req.Header.Set(correlationIDHeader, id)
	}
	if c.internalKey != "" {
		req.Header.Set(internalKeyHeader, c.internalKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, ctxErr)
		}
		logger.FromContext(ctx, c.logger).Warn("Failed to reach account service", "path", path, "error", err)
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: account service returned %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("%w: malformed account service response: %v", shared.ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || env.Error != nil {
		code, message := "", ""
		if env.Error != nil {
			code, message = env.Error.Code, env.Error.Message
		}
		return mapError(resp.StatusCode, code, message, subject)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: malformed account service payload: %v", shared.ErrUpstreamUnavailable, err)
	}
	return nil
}

// mapError turns an error envelope back into the matching domain error
func mapError(status int, code, message string, subject uuid.UUID) error {
	switch code {
	case "ACCOUNT_NOT_FOUND":
		return account.ErrAccountNotFound{AccountID: subject}
	case "ACCOUNT_INACTIVE":
		return account.ErrInactiveAccount{AccountID: subject}
	case "INSUFFICIENT_FUNDS":
		return account.ErrInsufficientFunds{AccountID: subject}
	case "ACCOUNT_ALREADY_CLOSED":
		return account.ErrAlreadyClosed{AccountID: subject}
	case "NON_ZERO_BALANCE":
		return account.ErrNonZeroBalance{AccountID: subject}
	case "FORBIDDEN":
		return fmt.Errorf("%w: %s", shared.ErrAccessDenied, message)
	case "UNAUTHORIZED":
		return fmt.Errorf("%w: %s", identity.ErrInvalidToken, message)
	case "BAD_REQUEST":
		return fmt.Errorf("%w: %s", shared.ErrInvalidRequest, message)
	}

	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: account service returned %d %s", shared.ErrUpstreamUnavailable, status, code)
	}
	return errors.New("account service error: " + code + " " + message)
}
