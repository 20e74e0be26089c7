package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hasentry/sentry/pkg/ai"
	"github.com/hasentry/sentry/pkg/api"
	"github.com/hasentry/sentry/pkg/config"
	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/observability"
	"github.com/hasentry/sentry/pkg/service"
	"github.com/hasentry/sentry/pkg/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sentry: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"port":        cfg.Server.Port,
		"health_port": cfg.Server.HealthPort,
		"supervisor":  cfg.Supervisor.Enabled,
		"ai":          cfg.AI.Enabled,
	}).Info("Starting dependency sentry")

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing OpenTelemetry: %w", err)
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	var supervisorClient *supervisor.Client
	if cfg.Supervisor.Enabled {
		supervisorClient = supervisor.NewClient(supervisor.Config{
			BaseURL: cfg.Supervisor.BaseURL,
			CoreURL: cfg.Supervisor.CoreURL,
			Token:   cfg.Supervisor.Token,
			Timeout: cfg.Supervisor.Timeout,
		}, logger)
	} else {
		logger.Info("Supervisor integration disabled; running in standalone scan mode")
	}

	var analyzer service.UpdateAnalyzer
	if cfg.AI.Enabled {
		aiAnalyzer, err := ai.NewAnalyzer(ai.Config{
			APIKey:    cfg.AI.APIKey,
			BaseURL:   cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			CacheSize: cfg.AI.CacheSize,
		}, logger)
		if err != nil {
			return fmt.Errorf("initializing AI analyzer: %w", err)
		}
		analyzer = aiAnalyzer
	}

	store := graph.NewStore()
	opts := service.Options{
		Config:   cfg.Scan,
		Notify:   cfg.Notifications,
		Logger:   logger,
		Metrics:  metrics,
		Store:    store,
		Analyzer: analyzer,
	}
	if supervisorClient != nil {
		opts.Updates = supervisorClient
		opts.Metadata = supervisorClient
		opts.Notifier = supervisorClient
	}
	sentry := service.NewSentry(opts)

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(store, sentry, logger, metrics).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(sentry, cfg.Scan.MaxSnapshotAge))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	if err := sentry.Start(ctx); err != nil {
		return err
	}

	go func() {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
		}
	}()
	go func() {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(sentry.Stop)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders, logger)
	})

	return shutdown.WaitForShutdown()
}
