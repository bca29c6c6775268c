package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadabra-cache/cadabra/pkg/analysis"
	"github.com/cadabra-cache/cadabra/pkg/store"
)

func TestHandlerServesPrometheusExposition(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveRequest("/analyze", 200)
	reg.ObserveInvalidations(3)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	reg.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "cadabra_http_requests_total")
	assert.Contains(t, body, "cadabra_invalidations_total 3")
}

func TestObserveRequestBucketsStatusClass(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveRequest("/analyze", 200)
	reg.ObserveRequest("/analyze", 404)
	reg.ObserveRequest("/analyze", 500)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `route="/analyze",status="2xx"`)
	assert.Contains(t, body, `route="/analyze",status="4xx"`)
	assert.Contains(t, body, `route="/analyze",status="5xx"`)
}

func TestStartCollectorRefreshesGauges(t *testing.T) {
	s, err := store.Open(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	k, err := analysis.New().AnalyzeSelect("SELECT * FROM users WHERE id = ?", []interface{}{1})
	require.NoError(t, err)
	require.NoError(t, s.Register(*k, []byte(`{}`), 1))

	reg := NewRegistry()
	stop := make(chan struct{})
	defer close(stop)
	reg.StartCollector(s, 10*time.Millisecond, stop)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		return strings.Contains(rec.Body.String(), "cadabra_cache_entries 1")
	}, time.Second, 10*time.Millisecond)
}
