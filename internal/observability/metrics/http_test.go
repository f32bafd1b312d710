package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetricsWithRegisterer(reg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/applications/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/applications/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/applications/:id", "204"))
	assert.Equal(t, float64(2), got)
}

func TestHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewHTTPMetricsWithRegisterer(reg)
	require.NoError(t, err)
	second, err := NewHTTPMetricsWithRegisterer(reg)
	require.NoError(t, err)
	assert.Same(t, first.requests, second.requests)
}
