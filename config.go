package main

import (
	"fmt"
	"regexp"
	"time"
)

var validNamespace = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

type config struct {
	accessKey        string
	secretKey        string
	host             string
	port             int
	listenPort       int
	updateInterval   time.Duration
	maxConcurrency   int
	httpTimeout      time.Duration
	metricsNamespace string
}

type options struct {
	accessKey        string
	secretKey        string
	host             string
	port             int
	listenPort       int
	updateIntervalMs int
	maxConcurrency   int
	httpTimeoutMs    int
	metricsNamespace string
}

func newConfig(opts options) (config, error) {
	if opts.accessKey == "" {
		return config{}, &ConfigError{Option: "API_ACCESS_KEY", Reason: "missing environment variable"}
	}
	if opts.secretKey == "" {
		return config{}, &ConfigError{Option: "API_SECRET_KEY", Reason: "missing environment variable"}
	}
	if opts.host == "" {
		return config{}, &ConfigError{Option: "HOST", Reason: "must not be empty"}
	}
	if opts.port <= 0 || opts.port > 65535 {
		return config{}, &ConfigError{Option: "PORT", Reason: fmt.Sprintf("%d is not a valid port", opts.port)}
	}
	if opts.listenPort <= 0 || opts.listenPort > 65535 {
		return config{}, &ConfigError{Option: "LISTEN_PORT", Reason: fmt.Sprintf("%d is not a valid port", opts.listenPort)}
	}
	if opts.updateIntervalMs <= 0 {
		return config{}, &ConfigError{Option: "UPDATE_INTERVAL", Reason: "must be a positive number of milliseconds"}
	}
	if opts.maxConcurrency <= 0 {
		return config{}, &ConfigError{Option: "MAX_CONCURRENCY", Reason: "must be positive"}
	}
	if opts.httpTimeoutMs <= 0 {
		return config{}, &ConfigError{Option: "HTTP_TIMEOUT", Reason: "must be a positive number of milliseconds"}
	}
	if opts.metricsNamespace != "" && !validNamespace.MatchString(opts.metricsNamespace) {
		return config{}, &ConfigError{Option: "METRICS_NAMESPACE", Reason: fmt.Sprintf("%q is not a valid metric name prefix", opts.metricsNamespace)}
	}

	return config{
		accessKey:        opts.accessKey,
		secretKey:        opts.secretKey,
		host:             opts.host,
		port:             opts.port,
		listenPort:       opts.listenPort,
		updateInterval:   time.Duration(opts.updateIntervalMs) * time.Millisecond,
		maxConcurrency:   opts.maxConcurrency,
		httpTimeout:      time.Duration(opts.httpTimeoutMs) * time.Millisecond,
		metricsNamespace: opts.metricsNamespace,
	}, nil
}

func (c config) baseURL() string {
	return fmt.Sprintf("http://%s:%d", c.host, c.port)
}
