package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("create", nil)
	m.ObserveOperation("create", nil)
	m.ObserveOperation("create", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TimezoneOperations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TimezoneOperations.WithLabelValues("create", "error")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("update", nil)
		m.ObserveResolution(nil)
		m.ObservePublish(errors.New("down"))
	})
}
