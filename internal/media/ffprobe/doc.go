// Package ffprobe wraps ffprobe execution and JSON payload parsing.
package ffprobe
