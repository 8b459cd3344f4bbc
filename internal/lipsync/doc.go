// Package lipsync drives an optional hosted lip-sync generation step:
// submit a video plus the dubbed audio track, poll the job to a terminal
// state within a bounded wait, and download the rendered result.
package lipsync
