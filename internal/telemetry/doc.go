// Package telemetry provides Prometheus metrics and OpenTelemetry spans for
// the installer and the API server.
//
// Collectors are registered on an injected prometheus.Registerer so tests
// and embedders can use an isolated registry:
//
//	reg := prometheus.NewRegistry()
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	http.Handle("/metrics", m.Handler())
//
// Spans use the global OpenTelemetry tracer provider.
package telemetry
