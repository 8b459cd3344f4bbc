package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"dubber/internal/logging"
	"dubber/internal/media/ffprobe"
	"dubber/internal/runstore"
	"dubber/internal/services"
	"dubber/internal/stage"
)

type lipsyncStage struct {
	p        *Pipeline
	videoURL string
	audioURL string
}

func (s *lipsyncStage) Prepare(ctx context.Context, run *runstore.Run) error {
	if s.p.lipsync == nil {
		return services.Wrap(services.ErrConfiguration, "lipsync", "prepare", "lip-sync service not configured", nil)
	}
	if strings.TrimSpace(s.videoURL) == "" || strings.TrimSpace(s.audioURL) == "" {
		return services.Wrap(services.ErrValidation, "lipsync", "prepare", "hosted video and audio urls are required", nil)
	}
	// The provider caps input length. Check against the local source video
	// before submitting anything; trim first when it is too long.
	probe, err := ffprobe.Inspect(ctx, s.p.cfg.FFprobeBinary(), run.VideoPath)
	if err != nil {
		return err
	}
	maxSeconds := float64(s.p.cfg.Lipsync.MaxDurationSeconds)
	if duration := probe.DurationSeconds(); duration > maxSeconds {
		return services.Wrap(services.ErrValidation, "lipsync", "prepare",
			fmt.Sprintf("video runs %.1fs, above lipsync.max_duration_seconds (%d); trim it first", duration, s.p.cfg.Lipsync.MaxDurationSeconds), nil)
	}
	return nil
}

func (s *lipsyncStage) Execute(ctx context.Context, run *runstore.Run) error {
	outputPath := syncedOutputPath(s.p.OutputPath(run))
	jobID, err := s.p.lipsync.Run(ctx, s.videoURL, s.audioURL, outputPath)
	if jobID != "" {
		run.LipsyncJobID = jobID
	}
	if err != nil {
		return err
	}
	run.OutputPath = outputPath
	s.p.logger.Info("lip-synced video downloaded",
		logging.String("job_id", jobID),
		logging.String("output", outputPath))
	return nil
}

// RunLipsync executes the lip-sync stage for a muxed run against hosted
// copies of its video and dubbed audio.
func (p *Pipeline) RunLipsync(ctx context.Context, run *runstore.Run, videoURL, audioURL string) error {
	return stage.Run(ctx, stage.Options{
		Logger:     p.logger,
		Store:      p.store,
		Handler:    &lipsyncStage{p: p, videoURL: videoURL, audioURL: audioURL},
		StageName:  "lipsync",
		Processing: runstore.StatusLipsyncing,
		Done:       runstore.StatusCompleted,
		Run:        run,
	})
}

func syncedOutputPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + "_synced" + ext
}
