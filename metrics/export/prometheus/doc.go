// Package prometheus exposes goSession counters through
// github.com/prometheus/client_golang.
//
// [Collector] reads Engine.MetricsSnapshot on every scrape and emits one
// gosession_*_total counter per engine counter plus the
// gosession_guard_latency_seconds histogram. [NewRegistry] and [Handler]
// wire it to promhttp.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry; callers own the
//     registry.
//   - Mutate engine state.
package prometheus
