package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"dubber/internal/logging"
	"dubber/internal/segment"
	"dubber/internal/services"
)

// Synthesizer produces one audio clip for one segment.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// PoolOptions bound the concurrent synthesis run.
type PoolOptions struct {
	Workers int
	// AllowMissingClips turns a per-segment failure into a warning instead
	// of aborting the run. The aligner later fills the slot with silence.
	AllowMissingClips bool
}

// Report summarizes a synthesis run over a segment list.
type Report struct {
	// ClipPaths holds the produced clip per segment index.
	ClipPaths map[int]string
	// FailedIndices lists segments whose synthesis failed, in order.
	FailedIndices []int
}

// SynthesizeAll renders every segment's translated text into a clip under
// outDir, running at most opts.Workers requests at a time. Clips are named
// by segment index, so output order never depends on worker scheduling.
// The first failure cancels outstanding work and aborts with an error
// naming the segment, unless AllowMissingClips is set.
func SynthesizeAll(ctx context.Context, synth Synthesizer, segments []segment.Segment, outDir string, opts PoolOptions, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(segments) {
		workers = len(segments)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if !opts.AllowMissingClips {
		runCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	errs := make([]error, len(segments))
	dispatched := make([]bool, len(segments))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				seg := segments[i]
				path := filepath.Join(outDir, segment.ClipName(seg.Index))
				if err := synth.Synthesize(runCtx, seg.TargetText, path); err != nil {
					errs[i] = err
					if cancel != nil {
						cancel()
					}
					continue
				}
				logger.Debug("synthesized clip",
					logging.Int("segment", seg.Index),
					logging.String("path", path))
			}
		}()
	}
	for i := range segments {
		select {
		case jobs <- i:
			dispatched[i] = true
		case <-runCtx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	report := Report{ClipPaths: make(map[int]string, len(segments))}
	for i, seg := range segments {
		// A cancelled dispatch loop leaves trailing jobs unstarted; they
		// produced nothing and must not appear as clips.
		if errs[i] == nil && !dispatched[i] {
			errs[i] = runCtx.Err()
			if errs[i] == nil {
				errs[i] = context.Canceled
			}
		}
		if errs[i] != nil {
			report.FailedIndices = append(report.FailedIndices, seg.Index)
			continue
		}
		report.ClipPaths[seg.Index] = filepath.Join(outDir, segment.ClipName(seg.Index))
	}
	if len(report.FailedIndices) == 0 {
		return report, nil
	}
	if opts.AllowMissingClips {
		for _, idx := range report.FailedIndices {
			i := positionOf(segments, idx)
			logger.Warn("synthesis failed, slot will be silent",
				logging.Int("segment", idx),
				logging.Error(errs[i]))
		}
		return report, nil
	}
	// Cancellation fans out to in-flight segments; report the failure that
	// triggered it, not a cancellation victim.
	firstPos := -1
	for i := range segments {
		if errs[i] == nil {
			continue
		}
		if firstPos == -1 {
			firstPos = i
		}
		if !errors.Is(errs[i], context.Canceled) {
			firstPos = i
			break
		}
	}
	return report, services.Wrap(services.ErrUpstream, "synthesis", "synthesize all",
		fmt.Sprintf("segment %d", segments[firstPos].Index), errs[firstPos])
}

func positionOf(segments []segment.Segment, index int) int {
	for i, seg := range segments {
		if seg.Index == index {
			return i
		}
	}
	return -1
}
