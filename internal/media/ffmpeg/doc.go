// Package ffmpeg wraps the ffmpeg binary for audio extraction, clip
// decoding, muxing, and tail trimming.
package ffmpeg
