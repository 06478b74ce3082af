// Package memory provides decoded-size estimation and admission control
// for media processing, plus GOMEMLIMIT configuration from container
// memory limits.
//
// The estimator is a pure admission-control gate: it computes the peak
// decoded footprint of an image from its pixel dimensions (4 bytes/pixel,
// RGBA) before any decode work happens, and rejects jobs whose estimate
// exceeds a hard ceiling. This is deliberately pessimistic and cheap; the
// point is to fail fast instead of discovering an out-of-memory condition
// halfway through a decode.
package memory
