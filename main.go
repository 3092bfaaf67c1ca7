package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/Financial-Times/go-logger"
	cli "github.com/jawher/mow.cli"
)

func main() {
	app := cli.App(systemCode, "Exports the state of Rancher environments as Prometheus gauges.")

	accessKey := app.String(cli.StringOpt{
		Name:   "api-access-key",
		Value:  "",
		Desc:   "Access key used as the basic auth user for the orchestration API",
		EnvVar: "API_ACCESS_KEY",
	})
	secretKey := app.String(cli.StringOpt{
		Name:      "api-secret-key",
		Value:     "",
		Desc:      "Secret key used as the basic auth password for the orchestration API",
		EnvVar:    "API_SECRET_KEY",
		HideValue: true,
	})
	host := app.String(cli.StringOpt{
		Name:   "host",
		Value:  "localhost",
		Desc:   "Orchestration API host",
		EnvVar: "HOST",
	})
	port := app.Int(cli.IntOpt{
		Name:   "port",
		Value:  8080,
		Desc:   "Orchestration API port",
		EnvVar: "PORT",
	})
	listenPort := app.Int(cli.IntOpt{
		Name:   "listen-port",
		Value:  9010,
		Desc:   "Port the metrics endpoint listens on",
		EnvVar: "LISTEN_PORT",
	})
	updateInterval := app.Int(cli.IntOpt{
		Name:   "update-interval",
		Value:  5000,
		Desc:   "Poll period in milliseconds",
		EnvVar: "UPDATE_INTERVAL",
	})
	maxConcurrency := app.Int(cli.IntOpt{
		Name:   "max-concurrency",
		Value:  10,
		Desc:   "Maximum number of services collections fetched at the same time",
		EnvVar: "MAX_CONCURRENCY",
	})
	httpTimeout := app.Int(cli.IntOpt{
		Name:   "http-timeout",
		Value:  10000,
		Desc:   "Timeout in milliseconds for a single request to the orchestration API",
		EnvVar: "HTTP_TIMEOUT",
	})
	metricsNamespace := app.String(cli.StringOpt{
		Name:   "metrics-namespace",
		Value:  "rancher",
		Desc:   "Namespace of the exported gauges",
		EnvVar: "METRICS_NAMESPACE",
	})
	logLevel := app.String(cli.StringOpt{
		Name:   "log-level",
		Value:  "info",
		Desc:   "Logging level (debug, info, warn, error)",
		EnvVar: "LOG_LEVEL",
	})

	app.Action = func() {
		log.InitLogger(systemCode, *logLevel)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		err := startExporter(ctx, options{
			accessKey:        *accessKey,
			secretKey:        *secretKey,
			host:             *host,
			port:             *port,
			listenPort:       *listenPort,
			updateIntervalMs: *updateInterval,
			maxConcurrency:   *maxConcurrency,
			httpTimeoutMs:    *httpTimeout,
			metricsNamespace: *metricsNamespace,
		}, listen)
		if err != nil {
			log.WithError(err).Error("Cannot run the exporter")
			cli.Exit(1)
		}
		log.Info("Received termination signal, exiting")
	}

	err := app.Run(os.Args)
	if err != nil {
		panic(fmt.Sprintf("Cannot run the app. Error was: %v", err))
	}
}

type listenFunc func(ctx context.Context, port int, handler http.Handler) error

// startExporter validates the options and, only when they are valid, starts polling and serving.
// It returns when ctx is done or the listener fails.
func startExporter(ctx context.Context, opts options, listen listenFunc) error {
	cfg, err := newConfig(opts)
	if err != nil {
		return err
	}

	client := newAPIClient(cfg.accessKey, cfg.secretKey, cfg.httpTimeout)
	walker := newResourceWalker(client, cfg.baseURL(), cfg.maxConcurrency)
	feeder := newPrometheusFeeder(cfg.metricsNamespace)
	sched := newScheduler(walker, feeder, cfg.updateInterval)

	handler := &httpHandler{feeder: feeder, reporter: sched}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- listen(ctx, cfg.listenPort, handler.router())
	}()
	log.Infof("Listening on %d", cfg.listenPort)

	go sched.run(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-listenErr:
		return err
	}
}

func listen(ctx context.Context, port int, handler http.Handler) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}
	go func() {
		<-ctx.Done()
		if err := server.Close(); err != nil {
			log.WithError(err).Warn("Cannot close HTTP listener")
		}
	}()

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("cannot set up HTTP listener on port %d: %w", port, err)
	}
	return nil
}
