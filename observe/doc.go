// Package observe provides telemetry for the request core: structured
// JSON logging, OpenTelemetry tracing, and request metrics.
//
// The Observer owns the telemetry providers for one process and hands
// out a Tracer, a Meter, and a Logger. Provider façades pass these to
// their pipelines; the pipeline is the single place that logs
// request/response pairs, so observability stays consistent and
// non-duplicated across API families.
//
// # Usage
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "amzcore",
//	    Version:     "1.0.0",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer obs.Shutdown(ctx)
package observe
