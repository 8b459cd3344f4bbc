package lipsync

import (
	"context"
	"path/filepath"
)

// Runner drives one generation end to end: submit, wait, download.
type Runner struct {
	client *Client
	poller *Poller
}

// NewRunner pairs a client with its poller.
func NewRunner(client *Client, poller *Poller) *Runner {
	return &Runner{client: client, poller: poller}
}

// Run submits a generation over hosted inputs, waits for it to finish, and
// downloads the result to outputPath. The job id is returned even on
// failure so an interrupted run can be checked with the service directly.
func (r *Runner) Run(ctx context.Context, videoURL, audioURL, outputPath string) (string, error) {
	jobID, err := r.client.Submit(ctx, videoURL, audioURL, filepath.Base(outputPath))
	if err != nil {
		return "", err
	}
	job, err := r.poller.Wait(ctx, jobID)
	if err != nil {
		return jobID, err
	}
	if err := r.client.Download(ctx, job.OutputURL, outputPath); err != nil {
		return jobID, err
	}
	return jobID, nil
}
