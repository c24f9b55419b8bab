// Package middleware provides HTTP middleware for the API surface:
// Prometheus request metrics and OpenTelemetry tracing.
//
// Both middlewares are configured with functional options and label by
// route pattern rather than raw path to keep metric cardinality bounded.
package middleware
