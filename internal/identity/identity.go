// Package identity verifies bearer tokens issued by the identity provider.
package identity

import (
	"context"
	"errors"

	"github.com/banking-ledger-saga/internal/domain/shared"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is the verified caller of a request
type Principal struct {
	UserID   string
	Username string
	Role     string
	Token    string
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == shared.RoleAdmin
}

// Verifier resolves a raw bearer token into a Principal. It returns
// ErrInvalidToken for rejected tokens and shared.ErrUpstreamUnavailable
// when the identity provider cannot be reached.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

type principalKey struct{}

// WithPrincipal stores p on ctx so outbound calls can forward the caller's token
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
