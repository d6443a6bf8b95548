package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/v1/accounts/details/:id", func(c *gin.Context) {
		c.Status(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/accounts/details/:id", "418"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/details/abc", nil)
	r.ServeHTTP(w, req)

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/accounts/details/:id", "418"))
	assert.Equal(t, before+1, after)
}

func TestRecorders(t *testing.T) {
	completedBefore := testutil.ToFloat64(sagaOutcomes.WithLabelValues("transfer", OutcomeCompleted))
	RecordSaga("transfer", OutcomeCompleted, 0)
	assert.Equal(t, completedBefore+1, testutil.ToFloat64(sagaOutcomes.WithLabelValues("transfer", OutcomeCompleted)))

	reversedBefore := testutil.ToFloat64(compensations.WithLabelValues("succeeded"))
	RecordCompensation(true)
	assert.Equal(t, reversedBefore+1, testutil.ToFloat64(compensations.WithLabelValues("succeeded")))

	inconsistentBefore := testutil.ToFloat64(inconsistencies)
	RecordInconsistency()
	assert.Equal(t, inconsistentBefore+1, testutil.ToFloat64(inconsistencies))

	relayBefore := testutil.ToFloat64(outboxRelayed.WithLabelValues("failed"))
	RecordOutboxRelay(false)
	assert.Equal(t, relayBefore+1, testutil.ToFloat64(outboxRelayed.WithLabelValues("failed")))

	RecordSaga("deposit", OutcomeFailed, 25*time.Millisecond)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordInconsistency()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "banking_saga_inconsistencies_total"))
}
