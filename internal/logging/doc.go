// Package logging wraps log/slog construction and provides typed attribute
// helpers and context-derived fields shared across the pipeline.
package logging
