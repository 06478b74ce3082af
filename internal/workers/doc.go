// Package workers computes worker pool sizes from available CPU,
// respecting container CPU limits via GOMAXPROCS.
package workers
