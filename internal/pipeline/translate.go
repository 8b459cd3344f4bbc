package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"dubber/internal/logging"
	"dubber/internal/runstore"
	"dubber/internal/segment"
	"dubber/internal/services"
	"dubber/internal/stage"
	"dubber/internal/subtitles"
)

type translateStage struct {
	p *Pipeline

	segments []segment.Segment
}

func (s *translateStage) Health(context.Context) stage.Health {
	if s.p.translator == nil {
		return stage.Unhealthy("translate", "translation service not configured")
	}
	return stage.Healthy("translate")
}

func (s *translateStage) Prepare(ctx context.Context, run *runstore.Run) error {
	if s.p.translator == nil {
		return services.Wrap(services.ErrConfiguration, "translate", "prepare", "translator not configured", nil)
	}
	if _, err := os.Stat(run.VideoPath); err != nil {
		return services.Wrap(services.ErrNotFound, "translate", "prepare", "video file", err)
	}
	segments, err := subtitles.ParseSRT(run.SubPath)
	if err != nil {
		return err
	}
	s.segments = segments
	return os.MkdirAll(s.p.RunDir(run), 0o755)
}

func (s *translateStage) Execute(ctx context.Context, run *runstore.Run) error {
	translated, err := s.p.translator.TranslateSegments(ctx, s.segments)
	if err != nil {
		return err
	}
	dir := s.p.RunDir(run)
	segmentsPath := filepath.Join(dir, "segments.jsonl")
	if err := segment.WriteJSONL(segmentsPath, translated); err != nil {
		return err
	}
	srtPath := filepath.Join(dir, "translated.srt")
	if err := os.WriteFile(srtPath, []byte(subtitles.ComposeSRT(translated, true)), 0o644); err != nil {
		return services.Wrap(services.ErrMediaTool, "translate", "execute", "write translated srt", err)
	}
	run.SegmentsPath = segmentsPath
	s.p.logger.Info("segments translated",
		logging.Int("segments", len(translated)),
		logging.String("artifact", segmentsPath))
	return nil
}
