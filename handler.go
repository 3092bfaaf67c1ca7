package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	fthealth "github.com/Financial-Times/go-fthealth/v1_1"
	log "github.com/Financial-Times/go-logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	systemCode = "rancher-environment-exporter"
	appName    = "Rancher Environment Exporter"
)

type cycleReporter interface {
	lastCycle() (ran bool, lastSuccess time.Time, err error)
}

type httpHandler struct {
	feeder   *prometheusFeeder
	reporter cycleReporter
}

func (h *httpHandler) router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(h.feeder.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/__health", fthealth.Handler(h.healthCheck())).Methods(http.MethodGet)
	r.HandleFunc("/__gtg", h.handleGoodToGo).Methods(http.MethodGet)
	return r
}

func (h *httpHandler) healthCheck() fthealth.HealthCheck {
	return fthealth.HealthCheck{
		SystemCode:  systemCode,
		Name:        appName,
		Description: "Exports the state of Rancher environments as Prometheus gauges.",
		Checks:      []fthealth.Check{h.upstreamCheck()},
	}
}

func (h *httpHandler) upstreamCheck() fthealth.Check {
	return fthealth.Check{
		ID:               "check-upstream-api",
		BusinessImpact:   "Environment gauges are stale, so alerts on environment health may not fire.",
		Name:             "Upstream orchestration API reachable",
		PanicGuide:       "Check connectivity and credentials for the orchestration API configured by HOST and PORT.",
		Severity:         2,
		TechnicalSummary: "The last poll cycle could not read the environment states from the orchestration API.",
		Checker:          h.checkLastCycle,
	}
}

func (h *httpHandler) checkLastCycle() (string, error) {
	ran, lastSuccess, err := h.reporter.lastCycle()
	if !ran {
		return "", errors.New("no poll cycle has completed yet")
	}
	if err != nil {
		return "", fmt.Errorf("last poll cycle failed: %w", err)
	}
	return fmt.Sprintf("Environment states published at %s", lastSuccess.UTC().Format(time.RFC3339)), nil
}

func (h *httpHandler) handleGoodToGo(w http.ResponseWriter, _ *http.Request) {
	if _, err := h.checkLastCycle(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, wErr := w.Write([]byte(err.Error())); wErr != nil {
			log.WithError(wErr).Error("Cannot write gtg response.")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.WithError(err).Error("Cannot write gtg response.")
	}
}
