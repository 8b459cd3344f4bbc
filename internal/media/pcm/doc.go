// Package pcm provides mono PCM clip decoding and encoding over WAV files.
package pcm
