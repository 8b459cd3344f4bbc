package pipeline

import (
	"context"

	"dubber/internal/logging"
	"dubber/internal/media/ffmpeg"
	"dubber/internal/runstore"
	"dubber/internal/services"
	"dubber/internal/stage"
)

type muxStage struct {
	p *Pipeline
}

func (s *muxStage) Health(context.Context) stage.Health {
	return binariesHealth("mux", s.p.cfg.FFmpegBinary())
}

func (s *muxStage) Prepare(ctx context.Context, run *runstore.Run) error {
	if run.AudioPath == "" {
		return services.Wrap(services.ErrNotFound, "mux", "prepare", "run has no dubbed audio track", nil)
	}
	return nil
}

func (s *muxStage) Execute(ctx context.Context, run *runstore.Run) error {
	outputPath := s.p.OutputPath(run)
	err := s.p.ffmpeg.Mux(ctx, ffmpeg.MuxRequest{
		VideoPath:  run.VideoPath,
		AudioPath:  run.AudioPath,
		OutputPath: outputPath,
		TargetLang: s.p.cfg.Translation.TargetLang,
		SourceLang: s.p.cfg.Translation.SourceLang,
	})
	if err != nil {
		return err
	}
	run.OutputPath = outputPath
	s.p.logger.Info("dubbed video muxed",
		logging.String("output", outputPath))
	return nil
}
