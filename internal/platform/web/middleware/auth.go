package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/identity"
)

const (
	// PrincipalKey is the gin context key holding the verified *identity.Principal
	PrincipalKey = "principal"

	// InternalKeyHeader carries the shared secret for service-to-service endpoints
	InternalKeyHeader = "X-Internal-Key"
)

// Authenticate verifies the bearer token once per request and stores the
// principal on both the gin context and the request context.
func Authenticate(verifier identity.Verifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is missing")
			return
		}

		principal, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrUpstreamUnavailable) {
				logger.Warn("Identity provider unavailable", "error", err, "correlation_id", GetCorrelationID(c))
				abortWithError(c, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Authorization service unavailable")
				return
			}
			logger.Debug("Token rejected", "error", err, "correlation_id", GetCorrelationID(c))
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireAdmin must run after Authenticate
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetPrincipal(c).IsAdmin() {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Admin privilege required")
			return
		}
		c.Next()
	}
}

// RequireInternalKey guards service-to-service endpoints. An empty key leaves
// the endpoint open.
func RequireInternalKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := c.GetHeader(InternalKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid internal key")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal stored by Authenticate, or nil
func GetPrincipal(c *gin.Context) *identity.Principal {
	if v, exists := c.Get(PrincipalKey); exists {
		if p, ok := v.(*identity.Principal); ok {
			return p
		}
	}
	return nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
