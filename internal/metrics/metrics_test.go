package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marinova/internal/domain"
)

func TestRecordUsageDecision(t *testing.T) {
	before := testutil.ToFloat64(usageDecisions.WithLabelValues("forecast", OutcomeCharged))
	RecordUsageDecision(domain.FeatureForecast, OutcomeCharged)
	after := testutil.ToFloat64(usageDecisions.WithLabelValues("forecast", OutcomeCharged))
	assert.Equal(t, before+1, after)
}

func TestFeatureLabelBoundsCardinality(t *testing.T) {
	assert.Equal(t, "chat", featureLabel(domain.FeatureChat))
	assert.Equal(t, "image", featureLabel(domain.FeatureImage))
	assert.Equal(t, "other", featureLabel(domain.Feature("made-up-feature")))
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/api/metrics", gin.WrapH(Handler()))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/ping", "204"))

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/ping", "204")))

	req = httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "marinova_http_requests_total"))
}
