// Package telemetry provides logging, tracing and metrics for secretspec.
//
// Logging uses zerolog and writes to stderr by default so that command
// output on stdout stays machine readable. Tracing uses OpenTelemetry with
// otlp, stdout or no exporter. Metrics are Prometheus collectors on a
// private registry; one-shot commands write them to a node_exporter
// textfile on shutdown and the watch command can serve them over HTTP.
//
// # Usage
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//	ctx = telemetry.WithResolutionContext(ctx, runID, project, profile)
//	defer telemetry.EndResolutionContext(ctx, fragments, err)
//
// Backend calls are wrapped so that each gets a span and a duration sample:
//
//	err := telemetry.RecordBackendOperation(ctx, "vault", "get", func(ctx context.Context) error {
//	    value, found, err = b.Get(ctx, project, profile, key)
//	    return err
//	})
//
// # Metrics
//
//   - secretspec_resolutions_total{status}
//   - secretspec_resolution_duration_seconds{status}
//   - secretspec_fragments_per_resolution
//   - secretspec_fragment_fetches_total{status}
//   - secretspec_active_resolutions
//   - secretspec_secrets_classified_total{status}
//   - secretspec_backend_operations_total{backend,operation}
//   - secretspec_backend_operation_duration_seconds{backend,operation}
//   - secretspec_backend_errors_total{backend,operation}
//   - secretspec_errors_by_class_total{class}
//   - secretspec_errors_by_code_total{code}
//
// Secret values never appear in log fields, span attributes or labels.
package telemetry
