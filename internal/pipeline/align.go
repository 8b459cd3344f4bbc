package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"dubber/internal/align"
	"dubber/internal/logging"
	"dubber/internal/media/ffprobe"
	"dubber/internal/media/pcm"
	"dubber/internal/runstore"
	"dubber/internal/segment"
	"dubber/internal/services"
	"dubber/internal/stage"
)

type alignStage struct {
	p *Pipeline

	segments    []segment.Segment
	durationSec float64
}

func (s *alignStage) Health(context.Context) stage.Health {
	return binariesHealth("align", s.p.cfg.FFmpegBinary(), s.p.cfg.FFprobeBinary())
}

// binariesHealth reports a stage unready when one of its external tools is
// not on the path.
func binariesHealth(name string, binaries ...string) stage.Health {
	for _, binary := range binaries {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
		}
	}
	return stage.Healthy(name)
}

func (s *alignStage) Prepare(ctx context.Context, run *runstore.Run) error {
	if run.SegmentsPath == "" {
		return services.Wrap(services.ErrNotFound, "align", "prepare", "run has no segments artifact", nil)
	}
	if run.ClipsDir == "" {
		return services.Wrap(services.ErrNotFound, "align", "prepare", "run has no clips directory", nil)
	}
	segments, err := segment.ReadJSONL(run.SegmentsPath)
	if err != nil {
		return err
	}
	probe, err := ffprobe.Inspect(ctx, s.p.cfg.FFprobeBinary(), run.VideoPath)
	if err != nil {
		return err
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return services.Wrap(services.ErrMediaTool, "align", "prepare", "video reports no duration", nil)
	}
	s.segments = segments
	s.durationSec = duration
	return nil
}

func (s *alignStage) Execute(ctx context.Context, run *runstore.Run) error {
	dir := s.p.RunDir(run)
	clips, err := align.LoadClips(ctx, s.p.ffmpeg, run.ClipsDir, filepath.Join(dir, "decoded"),
		s.segments, s.p.cfg.Audio.SampleRate, s.p.logger)
	if err != nil {
		return err
	}
	aligner, err := align.New(align.OptionsFromConfig(s.p.cfg.Audio), s.p.logger)
	if err != nil {
		return err
	}
	track, err := aligner.Render(s.segments, clips, s.durationSec)
	if err != nil {
		return err
	}
	audioPath := filepath.Join(dir, "dubbed_audio.wav")
	if err := pcm.SaveWAV(audioPath, track); err != nil {
		return err
	}
	run.AudioPath = audioPath
	s.p.logger.Info("dubbed track rendered",
		logging.Float64("duration_sec", track.DurationSec()),
		logging.String("artifact", audioPath))
	return nil
}
