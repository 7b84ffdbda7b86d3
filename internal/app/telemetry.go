package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// startTelemetry installs a meter provider backed by a Prometheus exporter.
// The materializer's instruments report through it and /metrics serves
// them. Each App uses its own registry.
func (a *App) startTelemetry() error {
	registry := prometheus.NewRegistry()
	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}
	a.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(a.meterProvider)
	a.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	a.logger.Debug("Telemetry configured.", "exporter", "prometheus")
	return nil
}

func (a *App) stopTelemetry() error {
	if a.meterProvider == nil {
		return nil
	}
	if err := a.meterProvider.Shutdown(a.ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
