package pipeline

import (
	"context"
	"path/filepath"

	"dubber/internal/logging"
	"dubber/internal/runstore"
	"dubber/internal/segment"
	"dubber/internal/services"
	"dubber/internal/stage"
	"dubber/internal/synthesis"
)

type synthesizeStage struct {
	p *Pipeline

	segments []segment.Segment
}

func (s *synthesizeStage) Health(context.Context) stage.Health {
	if s.p.synthesizer == nil {
		return stage.Unhealthy("synthesize", "synthesis service not configured")
	}
	return stage.Healthy("synthesize")
}

func (s *synthesizeStage) Prepare(ctx context.Context, run *runstore.Run) error {
	if s.p.synthesizer == nil {
		return services.Wrap(services.ErrConfiguration, "synthesize", "prepare", "synthesizer not configured", nil)
	}
	if run.SegmentsPath == "" {
		return services.Wrap(services.ErrNotFound, "synthesize", "prepare", "run has no segments artifact", nil)
	}
	segments, err := segment.ReadJSONL(run.SegmentsPath)
	if err != nil {
		return err
	}
	s.segments = segments
	return nil
}

func (s *synthesizeStage) Execute(ctx context.Context, run *runstore.Run) error {
	clipsDir := filepath.Join(s.p.RunDir(run), "clips")
	report, err := synthesis.SynthesizeAll(ctx, s.p.synthesizer, s.segments, clipsDir, synthesis.PoolOptions{
		Workers:           s.p.cfg.TTS.Workers,
		AllowMissingClips: s.p.cfg.TTS.AllowMissingClips,
	}, s.p.logger)
	if err != nil {
		return err
	}
	run.ClipsDir = clipsDir
	s.p.logger.Info("clips synthesized",
		logging.Int("clips", len(report.ClipPaths)),
		logging.Int("missing", len(report.FailedIndices)),
		logging.String("dir", clipsDir))
	return nil
}
