// Package telemetry provides observability wiring for the pipeline:
// OpenTelemetry tracer bootstrap and Prometheus metrics for perimeter
// decisions, pipeline outcomes, and the HTTP surface.
package telemetry
