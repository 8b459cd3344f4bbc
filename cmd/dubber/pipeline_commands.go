package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"dubber/internal/align"
	"dubber/internal/media/ffprobe"
	"dubber/internal/media/pcm"
	"dubber/internal/pipeline"
	"dubber/internal/runstore"
	"dubber/internal/segment"
	"dubber/internal/subtitles"
	"dubber/internal/synthesis"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var srtPath, outPath, srtOutPath string

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate subtitle segments and write the JSONL artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			translator, err := ctx.translator()
			if err != nil {
				return err
			}
			segments, err := subtitles.ParseSRT(srtPath)
			if err != nil {
				return err
			}
			translated, err := translator.TranslateSegments(cmd.Context(), segments)
			if err != nil {
				return err
			}
			if err := segment.WriteJSONL(outPath, translated); err != nil {
				return err
			}
			if strings.TrimSpace(srtOutPath) != "" {
				if err := os.WriteFile(srtOutPath, []byte(subtitles.ComposeSRT(translated, true)), 0o644); err != nil {
					return fmt.Errorf("write translated srt: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Translated %d segments to %s\n", len(translated), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&srtPath, "srt", "", "Source subtitle file")
	cmd.Flags().StringVar(&outPath, "out", "segments.jsonl", "Output JSONL artifact")
	cmd.Flags().StringVar(&srtOutPath, "srt-out", "", "Optional translated SRT output")
	_ = cmd.MarkFlagRequired("srt")
	return cmd
}

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var segmentsPath, outDir string

	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Synthesize per-segment speech clips from the JSONL artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.synthesizer()
			if err != nil {
				return err
			}
			segments, err := segment.ReadJSONL(segmentsPath)
			if err != nil {
				return err
			}
			report, err := synthesis.SynthesizeAll(cmd.Context(), client, segments, outDir, synthesis.PoolOptions{
				Workers:           cfg.TTS.Workers,
				AllowMissingClips: cfg.TTS.AllowMissingClips,
			}, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synthesized %d clips to %s", len(report.ClipPaths), outDir)
			if len(report.FailedIndices) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d segments left silent)", len(report.FailedIndices))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentsPath, "segments", "", "Translated segments JSONL")
	cmd.Flags().StringVar(&outDir, "out-dir", "clips", "Directory for synthesized clips")
	_ = cmd.MarkFlagRequired("segments")
	return cmd
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var segmentsPath, clipsDir, videoPath, outPath string
	var durationSec float64

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Render clips into a single track matching the subtitle timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			tool, err := ctx.ffmpegTool()
			if err != nil {
				return err
			}
			segments, err := segment.ReadJSONL(segmentsPath)
			if err != nil {
				return err
			}
			duration := durationSec
			if duration <= 0 {
				if strings.TrimSpace(videoPath) == "" {
					return fmt.Errorf("either --video or --duration is required")
				}
				probe, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), videoPath)
				if err != nil {
					return err
				}
				duration = probe.DurationSeconds()
			}
			scratch := filepath.Join(filepath.Dir(outPath), ".decoded")
			clips, err := align.LoadClips(cmd.Context(), tool, clipsDir, scratch, segments, cfg.Audio.SampleRate, logger)
			if err != nil {
				return err
			}
			aligner, err := align.New(align.OptionsFromConfig(cfg.Audio), logger)
			if err != nil {
				return err
			}
			track, err := aligner.Render(segments, clips, duration)
			if err != nil {
				return err
			}
			if err := pcm.SaveWAV(outPath, track); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %.2fs dubbed track to %s\n", track.DurationSec(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentsPath, "segments", "", "Translated segments JSONL")
	cmd.Flags().StringVar(&clipsDir, "clips", "clips", "Directory of synthesized clips")
	cmd.Flags().StringVar(&videoPath, "video", "", "Source video; supplies the output duration")
	cmd.Flags().Float64Var(&durationSec, "duration", 0, "Output duration in seconds; overrides --video")
	cmd.Flags().StringVar(&outPath, "out", "dubbed_audio.wav", "Output WAV track")
	_ = cmd.MarkFlagRequired("segments")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var videoPath, srtPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full dubbing pipeline on a video and its subtitles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			tool, err := ctx.ffmpegTool()
			if err != nil {
				return err
			}
			translator, err := ctx.translator()
			if err != nil {
				return err
			}
			synthClient, err := ctx.synthesizer()
			if err != nil {
				return err
			}
			store, err := runstore.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if reset, err := store.ResetStuck(cmd.Context()); err != nil {
				return err
			} else if reset > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d interrupted run(s)\n", reset)
			}

			p := pipeline.New(cfg, store, logger, tool, translator, synthClient, nil)
			for _, health := range p.Health(cmd.Context()) {
				if !health.Ready {
					return fmt.Errorf("stage %s is not ready: %s", health.Name, health.Detail)
				}
			}

			run, err := store.NewRun(cmd.Context(), videoPath, srtPath)
			if err != nil {
				return err
			}
			if err := p.Execute(cmd.Context(), run); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dubbed video written to %s (run %s)\n", run.OutputPath, run.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Source video file")
	cmd.Flags().StringVar(&srtPath, "srt", "", "Source subtitle file")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("srt")
	return cmd
}
