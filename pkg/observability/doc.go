// Package observability provides structured logging, Prometheus metrics, health checks and
// OpenTelemetry tracing for activitylens.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("entity_type", "App\\Models\\User").Info("fetching entities")
//
// Core components take an optional *Logger and fall back to NopLogger.
//
// Context-aware logging:
//
//	ctx = observability.WithLogger(ctx, logger)
//	ctx = observability.WithRequestID(ctx, reqID)
//	observability.FromContext(ctx).Warn("entity fetch failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordFetch("App\\Models\\User", 12, elapsed, err)
//	metrics.RecordPresentation(observability.ModeBatch)
//
// The Record* helpers are safe on a nil *Metrics.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "activitylens",
//		Insecure:    true,
//	}, logger)
//	defer providers.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, nil, "presenter.PresentBatch")
//	defer observability.EndSpan(span, err)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/resolver: Fetch metrics and spans
package observability
