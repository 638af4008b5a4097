package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRecommendation(t *testing.T) {
	m := New()
	m.ObserveRecommendation(true)
	m.ObserveRecommendation(false)
	m.ObserveRecommendation(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recommendations.WithLabelValues("default")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Recommendations.WithLabelValues("data")))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.RecordsAppended.WithLabelValues(SourceAPI).Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `wonderpick_records_appended_total{source="api"} 1`)
}

func TestNewRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.StoreErrors.WithLabelValues("append").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StoreErrors.WithLabelValues("append")))
}
