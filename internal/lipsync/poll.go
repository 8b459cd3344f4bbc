package lipsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dubber/internal/config"
	"dubber/internal/logging"
	"dubber/internal/services"
)

// StatusChecker reports the current state of a generation job.
type StatusChecker interface {
	Status(ctx context.Context, jobID string) (Job, error)
}

// Poller waits for a generation job to reach a terminal state, checking at
// a fixed interval up to a maximum wait.
type Poller struct {
	checker  StatusChecker
	interval time.Duration
	maxWait  time.Duration
	logger   *slog.Logger

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// PollerOption customizes the poller.
type PollerOption func(*Poller)

// WithClock overrides the poller's time source and sleeper.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// NewPoller builds a poller from configuration.
func NewPoller(checker StatusChecker, cfg config.Lipsync, logger *slog.Logger, opts ...PollerOption) (*Poller, error) {
	if cfg.PollIntervalSeconds <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "lipsync", "new poller", "poll interval must be positive", nil)
	}
	if cfg.MaxWaitSeconds <= cfg.PollIntervalSeconds {
		return nil, services.Wrap(services.ErrConfiguration, "lipsync", "new poller", "max wait must exceed poll interval", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Poller{
		checker:  checker,
		interval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		maxWait:  time.Duration(cfg.MaxWaitSeconds) * time.Second,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Wait polls until the job completes, fails, or the wait budget elapses.
// A completed job is returned with its output URL. FAILED and REJECTED are
// upstream errors; an elapsed budget is a timeout. Every error names the
// job id so the run can be picked up with the service directly.
func (p *Poller) Wait(ctx context.Context, jobID string) (Job, error) {
	deadline := p.now().Add(p.maxWait)
	for {
		job, err := p.checker.Status(ctx, jobID)
		if err != nil {
			return Job{}, err
		}
		switch job.Status {
		case StatusCompleted:
			p.logger.Info("lip-sync job completed",
				logging.String("job_id", jobID))
			return job, nil
		case StatusFailed, StatusRejected:
			msg := fmt.Sprintf("job %s %s", jobID, job.Status)
			if job.Error != "" {
				msg += ": " + job.Error
			}
			return Job{}, services.Wrap(services.ErrUpstream, "lipsync", "wait", msg, nil)
		}
		if p.now().Add(p.interval).After(deadline) {
			return Job{}, services.Wrap(services.ErrTimeout, "lipsync", "wait",
				fmt.Sprintf("job %s still %s after %s", jobID, job.Status, p.maxWait), nil)
		}
		p.logger.Debug("lip-sync job pending",
			logging.String("job_id", jobID),
			logging.String("status", job.Status))
		if err := p.sleep(ctx, p.interval); err != nil {
			return Job{}, services.Wrap(services.ErrTimeout, "lipsync", "wait",
				fmt.Sprintf("job %s: wait cancelled", jobID), err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
