package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SecretProvider supplies the HS256 signing key
type SecretProvider interface {
	Secret(ctx context.Context) ([]byte, error)
}

// StaticSecret is a SecretProvider backed by a fixed key
type StaticSecret []byte

func (s StaticSecret) Secret(context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return s, nil
}

// Claims carried by identity provider tokens. The subject is the user id.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens locally
type JWTVerifier struct {
	secrets SecretProvider
	parser  *jwt.Parser
}

func NewJWTVerifier(secrets SecretProvider) *JWTVerifier {
	return &JWTVerifier{
		secrets: secrets,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	secret, err := v.secrets.Secret(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load jwt secret: %w", err)
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Principal{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
		Token:    tokenString,
	}, nil
}

// SignToken issues an HS256 token for p. Used by local tooling and tests.
func SignToken(secret []byte, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
