package main

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validMetricName = regexp.MustCompile(`^[a-zA-Z0-9_:]*$`)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Production", "Production"},
		{"already_valid:name_1", "already_valid:name_1"},
		{"pre-prod", "pre_prod"},
		{"EU West (backup)", "EU_West__backup_"},
		{"stack.v2/blue", "stack_v2_blue"},
		{"café", "caf_"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sanitized := sanitize(tt.name)
			assert.Equal(t, tt.expected, sanitized)
			assert.Regexp(t, validMetricName, sanitized)
			assert.Equal(t, sanitized, sanitize(sanitized), "Sanitize should be idempotent.")
		})
	}
}

func TestStateToFloat64(t *testing.T) {
	assert.Equal(t, float64(1), stateToFloat64("active"))
	assert.Equal(t, float64(0), stateToFloat64("stopped"))
	assert.Equal(t, float64(0), stateToFloat64("upgrading"))
	assert.Equal(t, float64(0), stateToFloat64(""))
}

func TestPublishSetsOneGaugePerEnvironment(t *testing.T) {
	feeder := newPrometheusFeeder("rancher")

	feeder.publish(environmentState{"Production": "active", "pre-prod": "stopped"})

	require.Contains(t, feeder.gauges, "environment_Production")
	require.Contains(t, feeder.gauges, "environment_pre_prod")
	assert.Equal(t, float64(1), testutil.ToFloat64(feeder.gauges["environment_Production"].WithLabelValues("Production")))
	assert.Equal(t, float64(0), testutil.ToFloat64(feeder.gauges["environment_pre_prod"].WithLabelValues("pre-prod")))
}

func TestPublishOverwritesAndNeverRemovesGauges(t *testing.T) {
	feeder := newPrometheusFeeder("rancher")

	feeder.publish(environmentState{"Production": "active", "Staging": "active"})
	gauge := feeder.gauges["environment_Production"]

	feeder.publish(environmentState{"Production": "degraded"})

	assert.Same(t, gauge, feeder.gauges["environment_Production"], "The gauge should be created only once.")
	assert.Equal(t, float64(0), testutil.ToFloat64(gauge.WithLabelValues("Production")))
	require.Contains(t, feeder.gauges, "environment_Staging")
	assert.Equal(t, float64(1), testutil.ToFloat64(feeder.gauges["environment_Staging"].WithLabelValues("Staging")), "Gauges of missing environments keep their last value.")
}

func TestPublishExposesSanitizedSeriesWithOriginalName(t *testing.T) {
	feeder := newPrometheusFeeder("")

	feeder.publish(environmentState{"EU West": "active"})

	expected := `
# HELP environment_EU_West Value of 1 if all containers in a stack are active
# TYPE environment_EU_West gauge
environment_EU_West{name="EU West"} 1
`
	err := testutil.GatherAndCompare(feeder.registry, strings.NewReader(expected), "environment_EU_West")
	assert.NoError(t, err)
}

func TestPublishEnvironmentsSharingASeries(t *testing.T) {
	feeder := newPrometheusFeeder("rancher")

	feeder.publish(environmentState{"a b": "active", "a_b": "stopped"})

	require.Len(t, feeder.gauges, 1)
	gauge := feeder.gauges["environment_a_b"]
	assert.Equal(t, 2, testutil.CollectAndCount(gauge))
	assert.Equal(t, float64(1), testutil.ToFloat64(gauge.WithLabelValues("a b")))
	assert.Equal(t, float64(0), testutil.ToFloat64(gauge.WithLabelValues("a_b")))
}

func TestFeederSelfMetrics(t *testing.T) {
	feeder := newPrometheusFeeder("rancher")
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	feeder.recordCycle(nil, at)
	feeder.recordCycle(errors.New("connection refused"), at.Add(time.Minute))

	assert.Equal(t, float64(1), testutil.ToFloat64(feeder.cycles.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(feeder.cycles.WithLabelValues("failure")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(feeder.lastSuccess))

	expected := `
# HELP rancher_exporter_pilotlight Pilot light for the exporter of environment states
# TYPE rancher_exporter_pilotlight gauge
rancher_exporter_pilotlight 1
`
	assert.NoError(t, testutil.GatherAndCompare(feeder.registry, strings.NewReader(expected), "rancher_exporter_pilotlight"))
}
