// Package align renders synthesized speech clips into a single audio track
// whose timeline matches the subtitle segments of the source video. Each
// segment reserves a fixed time slot; clips are trimmed, padded, or
// pitch-preserving time-stretched to fit, and everything outside a slot is
// silence.
package align
