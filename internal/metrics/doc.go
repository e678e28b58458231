// Package metrics exposes Prometheus metrics for alarm events and serves
// them together with a health probe over HTTP.
package metrics
