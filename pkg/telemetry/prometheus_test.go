package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetricsWith(reg)

	m.IncCounter("test_counter", 1, Label{Key: "tag", Value: "A"})
	m.IncCounter("test_counter", 2, Label{Key: "tag", Value: "A"})

	m.ObserveHistogram("test_histogram", 0.5, Label{Key: "tag", Value: "B"})

	m.SetGauge("test_gauge", 10, Label{Key: "tag", Value: "C"})
	m.SetGauge("test_gauge", 20, Label{Key: "tag", Value: "C"})

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]bool{}
	for _, f := range families {
		byName[f.GetName()] = true
	}
	assert.True(t, byName["test_counter"])
	assert.True(t, byName["test_histogram"])
	assert.True(t, byName["test_gauge"])

	// Counter accumulated both increments.
	for _, f := range families {
		if f.GetName() == "test_counter" {
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, float64(3), f.GetMetric()[0].GetCounter().GetValue())
		}
		if f.GetName() == "test_gauge" {
			assert.Equal(t, float64(20), f.GetMetric()[0].GetGauge().GetValue())
		}
	}
}

func TestPrometheusMetrics_ReusesVec(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetricsWith(reg)

	// Same name twice must not attempt a second registration.
	m.SetGauge("g", 1, Label{Key: "k", Value: "a"})
	m.SetGauge("g", 2, Label{Key: "k", Value: "b"})

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Len(t, families[0].GetMetric(), 2)
}
