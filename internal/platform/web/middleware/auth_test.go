package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking-ledger-saga/internal/domain/shared"
	"github.com/banking-ledger-saga/internal/identity"
)

type stubVerifier struct {
	principals map[string]*identity.Principal
	err        error
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*identity.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.principals[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return p, nil
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Message
}

func TestAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	verifier := &stubVerifier{principals: map[string]*identity.Principal{
		"user-token":  {UserID: "u-1", Role: shared.RoleUser},
		"admin-token": {UserID: "a-1", Role: shared.RoleAdmin},
	}}

	newRouter := func(v identity.Verifier) *gin.Engine {
		router := gin.New()
		router.Use(CorrelationID())
		authed := router.Group("/", Authenticate(v, logger))
		authed.GET("/me", func(c *gin.Context) {
			fromRequest, _ := identity.FromContext(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"user_id": GetPrincipal(c).UserID, "ctx_user_id": fromRequest.UserID})
		})
		authed.GET("/admin", RequireAdmin(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	tests := []struct {
		name        string
		verifier    identity.Verifier
		path        string
		header      string
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"MissingToken", verifier, "/me", "", http.StatusUnauthorized, "UNAUTHORIZED", "Token is missing"},
		{"MalformedHeader", verifier, "/me", "Token user-token", http.StatusUnauthorized, "UNAUTHORIZED", "Token is missing"},
		{"InvalidToken", verifier, "/me", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token"},
		{"ProviderDown", &stubVerifier{err: fmt.Errorf("%w: dial tcp", shared.ErrUpstreamUnavailable)}, "/me", "Bearer user-token", http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Authorization service unavailable"},
		{"AdminRouteAsUser", verifier, "/admin", "Bearer user-token", http.StatusForbidden, "FORBIDDEN", "Admin privilege required"},
		{"AdminRouteAsAdmin", verifier, "/admin", "Bearer admin-token", http.StatusOK, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			newRouter(tt.verifier).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				code, message := errorCode(t, rr)
				assert.Equal(t, tt.wantCode, code)
				assert.Equal(t, tt.wantMessage, message)
			}
		})
	}

	t.Run("StoresPrincipal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "bearer user-token")
		rr := httptest.NewRecorder()
		newRouter(verifier).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"user_id":"u-1","ctx_user_id":"u-1"}`, rr.Body.String())
	})
}

func TestRequireInternalKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(key string) *gin.Engine {
		router := gin.New()
		router.POST("/internal", RequireInternalKey(key), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("OpenWhenKeyUnset", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newRouter("").ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/internal", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("RejectsWrongKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		req.Header.Set(InternalKeyHeader, "wrong")
		rr := httptest.NewRecorder()
		newRouter("s3cret").ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("AcceptsMatchingKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		req.Header.Set(InternalKeyHeader, "s3cret")
		rr := httptest.NewRecorder()
		newRouter("s3cret").ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
