// Package metrics defines the Prometheus metrics exported by the
// transcoding service and serves them on a dedicated metrics port.
package metrics
