package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/b2bflow/front-forms/internal/domain"
)

// sample finds the metric of family name whose labels include want.
func sample(t *testing.T, reg prometheus.Gatherer, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue next
				}
			}
			return m
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return nil
}

func TestIntakeMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.StepReached(domain.StepName)
	m.StepReached(domain.StepName)
	m.StepReached(domain.StepSchedule)
	m.RemoteCall("create_lead", nil, 120*time.Millisecond)
	m.RemoteCall("create_lead", errors.New("boom"), time.Second)
	m.ObserveRequest("POST", 201)

	steps := "frontforms_intake_steps_reached_total"
	require.Equal(t, 2.0, sample(t, reg, steps, map[string]string{"step": "name"}).GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, steps, map[string]string{"step": "schedule"}).GetCounter().GetValue())

	calls := "frontforms_leadapi_calls_total"
	require.Equal(t, 1.0, sample(t, reg, calls, map[string]string{"op": "create_lead", "status": "ok"}).GetCounter().GetValue())
	require.Equal(t, 1.0, sample(t, reg, calls, map[string]string{"op": "create_lead", "status": "error"}).GetCounter().GetValue())

	latency := sample(t, reg, "frontforms_leadapi_call_latency_seconds", map[string]string{"op": "create_lead"})
	require.Equal(t, uint64(2), latency.GetHistogram().GetSampleCount())

	requests := sample(t, reg, "frontforms_http_requests_total", map[string]string{"method": "POST", "code": "201"})
	require.Equal(t, 1.0, requests.GetCounter().GetValue())
}

func TestIntakeMetricsDefaultRegistry(t *testing.T) {
	m := NewIntakeMetrics(nil)
	t.Cleanup(func() {
		prometheus.DefaultRegisterer.Unregister(m.stepsTotal)
		prometheus.DefaultRegisterer.Unregister(m.remoteTotal)
		prometheus.DefaultRegisterer.Unregister(m.remoteLatency)
		prometheus.DefaultRegisterer.Unregister(m.httpTotal)
	})
	m.StepReached(domain.StepSuccess)
}

func TestIntakeMetricsNilSafe(t *testing.T) {
	var m *IntakeMetrics
	m.StepReached(domain.StepName)
	m.RemoteCall("op", nil, time.Millisecond)
	m.ObserveRequest("GET", 200)
}
