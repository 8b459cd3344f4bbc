// Package stage defines the pipeline stage contract and the execution
// helper that applies run-store transition semantics around each stage.
package stage
