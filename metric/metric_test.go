package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilReceiverSkipsRecording(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordScan(PassMembership, 10, 1)
		m.RecordAggregates(5, 2, 9)
		m.RecordShapes(3)
		m.RecordPhase("statistics", time.Second)
		m.RecordSinkError("nats")
	})
}

func TestMetrics_RecordScanAccumulates(t *testing.T) {
	m := New()

	m.RecordScan(PassMembership, 10, 2)
	m.RecordScan(PassMembership, 5, 0)
	m.RecordScan(PassConstraint, 7, 1)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.TriplesProcessed.WithLabelValues(PassMembership)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesSkipped.WithLabelValues(PassMembership)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.TriplesProcessed.WithLabelValues(PassConstraint)))
}

func TestMetrics_RecordAggregatesSetsGauges(t *testing.T) {
	m := New()

	m.RecordAggregates(120, 4, 30)
	m.RecordAggregates(200, 6, 41)

	assert.Equal(t, 200.0, testutil.ToFloat64(m.EntitiesTracked))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.ClassesDiscovered))
	assert.Equal(t, 41.0, testutil.ToFloat64(m.SymbolsIssued))
}

func TestMetrics_HandlerServesExposition(t *testing.T) {
	m := New()
	m.RecordShapes(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "semshape_shapes_built_total")
}
