// Package discovery resolves collaborator service names to base URLs.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banking-ledger-saga/internal/config"
)

// Service names
const (
	AccountService = "account-service"
	AuthService    = "auth-service"
)

var ErrServiceNotFound = errors.New("service not found")

// Resolver maps a logical service name to a base URL without a trailing slash
type Resolver interface {
	Resolve(ctx context.Context, service string) (string, error)
}

// StaticResolver serves addresses fixed at start-up
type StaticResolver struct {
	addresses map[string]string
}

func NewStaticResolver(addresses map[string]string) *StaticResolver {
	cleaned := make(map[string]string, len(addresses))
	for name, addr := range addresses {
		if addr == "" {
			continue
		}
		cleaned[name] = strings.TrimRight(addr, "/")
	}
	return &StaticResolver{addresses: cleaned}
}

// NewStaticResolverFromConfig registers the account and auth services
func NewStaticResolverFromConfig(cfg *config.ServicesConfig) *StaticResolver {
	return NewStaticResolver(map[string]string{
		AccountService: cfg.AccountServiceURL,
		AuthService:    cfg.AuthServiceURL,
	})
}

func (r *StaticResolver) Resolve(_ context.Context, service string) (string, error) {
	addr, ok := r.addresses[service]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrServiceNotFound, service)
	}
	return addr, nil
}
