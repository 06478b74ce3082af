// Package pipeline implements the bounded media processor: a
// strict-budget image transcoding path that classifies a payload, gates
// it on estimated decoded memory, and walks a descending quality ladder
// of WebP encodes under a hard wall-clock budget.
//
// The processor is a greedy best-effort optimizer under a deadline: it
// trades optimal compression for bounded latency because it runs
// synchronously in a user-facing upload flow. Acceptance of a rung is a
// disjunction of "good enough compression" and "fast enough that a
// smaller win is affordable".
//
// Every terminal outcome is a Result; no error escapes Process
// unclassified. The error taxonomy is closed (see Kind) and shared with
// the browser variant of this pipeline, which is why kinds like wasm_oom
// and canvas_limit appear here.
package pipeline
