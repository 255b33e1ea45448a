package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/sweep/pkg/batch/core/config"
	metrics "github.com/tigerroll/sweep/pkg/batch/core/metrics"
	logger "github.com/tigerroll/sweep/pkg/batch/support/util/logger"
)

// ObservabilityParams defines the dependencies for NewObservability.
type ObservabilityParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
}

// ObservabilityResult exposes the recorder and tracer built from sweep.metrics.
type ObservabilityResult struct {
	fx.Out
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	Prometheus *PrometheusRecorder
}

// NewObservability always records to Prometheus and adds OTLP export when sweep.metrics.otel.enabled is set.
// On stop the Prometheus registry is written to sweep.metrics.textfile_path and the OTel providers are flushed.
func NewObservability(p ObservabilityParams) (ObservabilityResult, error) {
	cfg := p.Cfg.Sweep.Metrics
	prom := NewPrometheusRecorder()
	result := ObservabilityResult{
		Recorder:   prom,
		Tracer:     metrics.NewNoOpTracer(),
		Prometheus: prom,
	}

	if cfg.OTel.Enabled {
		providers, err := NewOTelProviders(context.Background(), cfg.OTel)
		if err != nil {
			return ObservabilityResult{}, err
		}
		otelRecorder, err := NewOpenTelemetryRecorder(providers.MeterProvider)
		if err != nil {
			return ObservabilityResult{}, err
		}
		result.Recorder = metrics.NewCompositeMetricRecorder(prom, otelRecorder)
		result.Tracer = NewOpenTelemetryTracer(providers.TracerProvider)
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := providers.Shutdown(ctx); err != nil {
					logger.Warnf("Metrics: failed to flush OpenTelemetry providers: %v", err)
				}
				return nil
			},
		})
		logger.Infof("Metrics: exporting to %s over OTLP/%s.", cfg.OTel.Endpoint, cfg.OTel.Protocol)
	}

	if cfg.TextfilePath != "" {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if err := prom.WriteTextfile(cfg.TextfilePath); err != nil {
					logger.Warnf("Metrics: failed to write textfile '%s': %v", cfg.TextfilePath, err)
				}
				return nil
			},
		})
	}
	return result, nil
}

// Module is an Fx module that provides the MetricRecorder and Tracer.
var Module = fx.Options(
	fx.Provide(NewObservability),
)
