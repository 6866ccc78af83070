package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/b2bflow/front-forms/internal/domain"
)

// IntakeMetrics exposes counters/histograms for the intake conversation.
type IntakeMetrics struct {
	stepsTotal    *prometheus.CounterVec
	remoteTotal   *prometheus.CounterVec
	remoteLatency *prometheus.HistogramVec
	httpTotal     *prometheus.CounterVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontforms",
			Subsystem: "intake",
			Name:      "steps_reached_total",
			Help:      "Conversations reaching each intake step",
		}, []string{"step"}),
		remoteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontforms",
			Subsystem: "leadapi",
			Name:      "calls_total",
			Help:      "Calls to the lead service by operation and outcome",
		}, []string{"op", "status"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "frontforms",
			Subsystem: "leadapi",
			Name:      "call_latency_seconds",
			Help:      "Latency of lead service calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontforms",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code",
		}, []string{"method", "code"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.stepsTotal, m.remoteTotal, m.remoteLatency, m.httpTotal)
	return m
}

func (m *IntakeMetrics) StepReached(step domain.Step) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(string(step)).Inc()
}

func (m *IntakeMetrics) RemoteCall(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.remoteTotal.WithLabelValues(op, status).Inc()
	m.remoteLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *IntakeMetrics) ObserveRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
