package main

import (
	"errors"
	"regexp"
	"sync"
	"time"

	log "github.com/Financial-Times/go-logger"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	seriesPrefix      = "environment_"
	environmentHelp   = "Value of 1 if all containers in a stack are active"
	exporterSubsystem = "exporter"
)

var unsafeMetricChars = regexp.MustCompile(`[^a-zA-Z0-9_:]`)

// prometheusFeeder owns the registry of per-environment gauges.
// Gauges are created on first sight of an environment and are never removed.
type prometheusFeeder struct {
	namespace string
	registry  *prometheus.Registry

	sync.Mutex
	gauges map[string]*prometheus.GaugeVec

	cycles      *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

func newPrometheusFeeder(namespace string) *prometheusFeeder {
	registry := prometheus.NewRegistry()

	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: exporterSubsystem,
			Name:      "cycles_total",
			Help:      "Number of poll cycles by result",
		},
		[]string{"result"})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: exporterSubsystem,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last poll cycle that published environment states",
	})
	registry.MustRegister(cycles, lastSuccess)
	ignitePilotLight(registry, namespace)

	return &prometheusFeeder{
		namespace:   namespace,
		registry:    registry,
		gauges:      make(map[string]*prometheus.GaugeVec),
		cycles:      cycles,
		lastSuccess: lastSuccess,
	}
}

func ignitePilotLight(registry prometheus.Registerer, namespace string) {
	pilotLight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: exporterSubsystem,
		Name:      "pilotlight",
		Help:      "Pilot light for the exporter of environment states",
	})
	registry.MustRegister(pilotLight)
	pilotLight.Set(1)
}

// publish sets one gauge per environment: 1 when active, 0 otherwise.
func (f *prometheusFeeder) publish(envState environmentState) {
	for name, state := range envState {
		seriesName := seriesPrefix + sanitize(name)
		gauge, err := f.gaugeFor(seriesName)
		if err != nil {
			log.WithError(err).Errorf("Cannot register gauge %s for environment %s", seriesName, name)
			continue
		}

		value := stateToFloat64(state)
		log.Debugf("Setting gauge %s to %v", seriesName, value)
		gauge.WithLabelValues(name).Set(value)
	}
}

func (f *prometheusFeeder) gaugeFor(seriesName string) (*prometheus.GaugeVec, error) {
	f.Lock()
	defer f.Unlock()

	if gauge, found := f.gauges[seriesName]; found {
		return gauge, nil
	}

	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: f.namespace,
			Name:      seriesName,
			Help:      environmentHelp,
		},
		[]string{"name"})
	if err := f.registry.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return nil, err
		}
		gauge = existing
	}

	f.gauges[seriesName] = gauge
	return gauge, nil
}

func (f *prometheusFeeder) recordCycle(err error, at time.Time) {
	if err != nil {
		f.cycles.WithLabelValues("failure").Inc()
		return
	}
	f.cycles.WithLabelValues("success").Inc()
	f.lastSuccess.Set(float64(at.Unix()))
}

// sanitize replaces every character that is not allowed in a metric name with an underscore.
func sanitize(name string) string {
	return unsafeMetricChars.ReplaceAllString(name, "_")
}

func stateToFloat64(state string) float64 {
	if state == activeState {
		return 1
	}
	return 0
}
