package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "worldclock"

// Metrics holds the collectors exported by the service.
type Metrics struct {
	TimezoneOperations *prometheus.CounterVec
	Resolutions        *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TimezoneOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timezone_operations_total",
			Help:      "Timezone record operations by operation and result.",
		}, []string{"operation", "result"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "City to timezone resolutions by result.",
		}, []string{"result"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Timezone change events handed to the broker by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.TimezoneOperations, m.Resolutions, m.EventsPublished, m.RequestDuration)
	}
	return m
}

// ObserveOperation counts one timezone operation outcome.
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.TimezoneOperations.WithLabelValues(operation, result(err)).Inc()
}

// ObserveResolution counts one resolver outcome.
func (m *Metrics) ObserveResolution(err error) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(result(err)).Inc()
}

// ObservePublish counts one event publish outcome.
func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
