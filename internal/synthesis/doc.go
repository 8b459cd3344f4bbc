// Package synthesis turns translated segment text into per-segment speech
// clips through an ElevenLabs-compatible API, with a bounded worker pool
// and deterministic index-based clip naming.
package synthesis
