package identity

import (
	"fmt"
	"log/slog"

	"github.com/banking-ledger-saga/internal/config"
	"github.com/banking-ledger-saga/internal/discovery"
)

// NewVerifierFromConfig picks local JWT verification or the remote auth
// service according to cfg.Mode.
func NewVerifierFromConfig(logger *slog.Logger, cfg *config.AuthConfig, resolver discovery.Resolver) (Verifier, error) {
	switch cfg.Mode {
	case config.AuthModeJWT:
		return NewJWTVerifier(StaticSecret([]byte(cfg.JWTSecret))), nil
	case config.AuthModeRemote:
		return NewRemoteVerifier(logger.With("component", "remote_verifier"), resolver, nil), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
