// Package translate adapts an OpenAI-compatible chat completions endpoint
// into the pipeline's per-segment translation contract.
package translate
