package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAggregation(t *testing.T) {
	before := testutil.ToFloat64(AggregationErrors.WithLabelValues("summary"))

	RecordAggregation("summary", 5*time.Millisecond, nil)
	assert.Equal(t, before, testutil.ToFloat64(AggregationErrors.WithLabelValues("summary")))

	RecordAggregation("summary", 5*time.Millisecond, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(AggregationErrors.WithLabelValues("summary")))
}

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/teams/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/teams/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	count := testutil.CollectAndCount(HTTPRequestDuration, "mcn_http_request_duration_seconds")
	assert.GreaterOrEqual(t, count, 1)
}
