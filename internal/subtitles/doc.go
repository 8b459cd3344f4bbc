// Package subtitles parses SRT files into timed segments and composes
// translated segments back into SRT text.
package subtitles
