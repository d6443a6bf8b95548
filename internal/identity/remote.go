package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/banking-ledger-saga/internal/discovery"
	"github.com/banking-ledger-saga/internal/domain/shared"
)

const verifyTokenPath = "/api/auth/verify_token"

// RemoteVerifier asks the identity provider to verify each token
type RemoteVerifier struct {
	resolver discovery.Resolver
	client   *http.Client
	logger   *slog.Logger
}

func NewRemoteVerifier(logger *slog.Logger, resolver discovery.Resolver, client *http.Client) *RemoteVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteVerifier{resolver: resolver, client: client, logger: logger}
}

type verifyTokenResponse struct {
	UserID   interface{} `json:"user_id"`
	Username string      `json:"username"`
	Role     string      `json:"role"`
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	baseURL, err := v.resolver.Resolve(ctx, discovery.AuthService)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+verifyTokenPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warn("Failed to reach auth service", "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: auth service returned %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, ErrInvalidToken
	}

	var body verifyTokenResponse
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response: %v", shared.ErrUpstreamUnavailable, err)
	}

	// user ids arrive as numbers or strings depending on the provider
	userID := ""
	switch id := body.UserID.(type) {
	case string:
		userID = id
	case json.Number:
		userID = id.String()
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID:   userID,
		Username: body.Username,
		Role:     body.Role,
		Token:    token,
	}, nil
}
